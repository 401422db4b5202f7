package bot

import (
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

// httpClient is reused for photo downloads
var httpClient = resty.New().SetTimeout(30 * time.Second)

// downloadFileID resolves a Telegram file ID to its direct URL and fetches
// the file body.
func downloadFileID(
	getFileDirectURL func(fileID string) (string, error),
	fileID string,
) ([]byte, error) {
	log.Debug().Str("fileID", fileID).Msg("downloading file")
	url, err := getFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve file %s: %w", fileID, err)
	}
	res, err := httpClient.R().Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to download file %s: %w", fileID, err)
	}
	if res.IsError() {
		return nil, fmt.Errorf("download of file %s failed: %s", fileID, res.Status())
	}
	return res.Body(), nil
}
