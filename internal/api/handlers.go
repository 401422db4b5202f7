package api

import (
	"encoding/base64"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/raine/telegram-carbon-bot/internal/carbon"
	"github.com/rs/zerolog/log"
)

type analyzeRequest struct {
	Image  string             `json:"image"`
	Images []string           `json:"images"`
	Items  []carbon.ItemInput `json:"items"`
}

type analyzeResponse struct {
	carbon.AnalysisResult
	Demo   bool `json:"demo,omitempty"`
	Cached bool `json:"cached,omitempty"`
}

type estimateRequest struct {
	Name     string   `json:"name"`
	Quantity *float64 `json:"quantity"`
}

type factorResponse struct {
	Keyword  string          `json:"keyword"`
	KgCO2e   float64         `json:"kgCO2e"`
	Unit     string          `json:"unit"`
	Category carbon.Category `json:"category"`
}

type categoryResponse struct {
	Category carbon.Category `json:"category"`
	Keywords []string        `json:"keywords"`
}

// decodeImage accepts a data URL ("data:image/jpeg;base64,...") or bare
// base64 and returns the raw bytes.
func decodeImage(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:") {
		comma := strings.IndexByte(s, ',')
		if comma < 0 {
			return nil, fmt.Errorf("malformed data URL")
		}
		if !strings.HasSuffix(s[:comma], ";base64") {
			return nil, fmt.Errorf("data URL is not base64 encoded")
		}
		s = s[comma+1:]
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid image encoding: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty image")
	}
	return data, nil
}

func analysisFailed(err error) error {
	return fiber.NewError(fiber.StatusInternalServerError, "Analysis failed: "+err.Error())
}

// Analyze handles POST /api/analyze. A request with items runs the
// estimator directly; otherwise the images go through the receipt analyzer.
func (s *Server) Analyze(c *fiber.Ctx) error {
	var req analyzeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	if len(req.Items) > 0 {
		return c.JSON(analyzeResponse{AnalysisResult: carbon.Analyze(req.Items)})
	}

	encoded := req.Images
	if req.Image != "" {
		encoded = append([]string{req.Image}, encoded...)
	}
	if len(encoded) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "No image provided")
	}

	images := make([][]byte, 0, len(encoded))
	for _, e := range encoded {
		data, err := decodeImage(e)
		if err != nil {
			return analysisFailed(err)
		}
		images = append(images, data)
	}

	analysis, err := s.analyzer.AnalyzeReceipt(c.UserContext(), images)
	if err != nil {
		log.Error().Err(err).Int("imageCount", len(images)).Msg("api receipt analysis failed")
		return analysisFailed(err)
	}

	result := carbon.Analyze(analysis.Items)
	log.Info().
		Int("itemCount", len(result.Items)).
		Float64("totalKg", result.TotalCarbon).
		Bool("cached", analysis.Cached).
		Bool("demo", analysis.Demo).
		Msg("api receipt analyzed")

	return c.JSON(analyzeResponse{
		AnalysisResult: result,
		Demo:           analysis.Demo,
		Cached:         analysis.Cached,
	})
}

// Estimate handles POST /api/estimate.
func (s *Server) Estimate(c *fiber.Ctx) error {
	var req estimateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if strings.TrimSpace(req.Name) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "name is required")
	}
	if req.Quantity != nil && *req.Quantity <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "quantity must be a positive number")
	}
	return c.JSON(carbon.ResolveItem(carbon.ItemInput{Name: req.Name, Quantity: req.Quantity}))
}

// Equivalencies handles GET /api/equivalencies?kg=.
func (s *Server) Equivalencies(c *fiber.Ctx) error {
	kg, err := strconv.ParseFloat(c.Query("kg"), 64)
	if err != nil || kg < 0 || math.IsNaN(kg) || math.IsInf(kg, 0) {
		return fiber.NewError(fiber.StatusBadRequest, "kg must be a non-negative number")
	}
	return c.JSON(carbon.CalculateEquivalencies(kg))
}

// Factors handles GET /api/factors.
func (s *Server) Factors(c *fiber.Ctx) error {
	factors := carbon.EmissionFactors()
	out := make([]factorResponse, len(factors))
	for i, f := range factors {
		out[i] = factorResponse{
			Keyword:  f.Keyword,
			KgCO2e:   f.KgCO2e,
			Unit:     f.Unit,
			Category: carbon.CategorizeItem(f.Keyword),
		}
	}
	return c.JSON(out)
}

// Categories handles GET /api/categories.
func (s *Server) Categories(c *fiber.Ctx) error {
	table := carbon.CategoryKeywordTable()
	out := make([]categoryResponse, len(table))
	for i, ck := range table {
		out[i] = categoryResponse{Category: ck.Category, Keywords: ck.Keywords}
	}
	return c.JSON(out)
}

// Challenges handles GET /api/challenges.
func (s *Server) Challenges(c *fiber.Ctx) error {
	return c.JSON(s.catalog.All())
}
