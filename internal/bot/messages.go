package bot

// =============================================================================
// General messages
// =============================================================================

const (
	MsgOk            = `Ok!`
	MsgUnexpectedErr = `Unexpected error: %s`
	MsgVersionInfo   = "Version: %s\nBuilt: %s"
	MsgStartWelcome  = `
		🌱 *Carbon footprint tracker*

		Send a photo of a shopping receipt and I will estimate the CO₂ emissions of what you bought.

		You can also log items by hand with /log, follow your totals with /stats and take on /challenges.
		Type /help for all commands.`
	MsgHelp = `
		*Receipts*
		Send a photo (or an album) of a receipt, then save or discard the estimate.

		*Journal*
		` + "`/log <item> [quantity]`" + ` - log an item by hand, e.g. ` + "`/log beef 0.5`" + `
		/undo - remove the latest entry
		/history - show recent entries
		/stats - weekly and monthly totals

		*Challenges*
		/challenges - list challenges
		/join <id> - join a challenge
		/checkin <id> - record progress for today
		/mychallenges - your challenges
		/leaderboard - top savers

		/cancel - drop a pending receipt
		/version - show version`
	MsgUnknownCommand = "I did not understand that. Send a receipt photo or type /help."
)

// =============================================================================
// Receipt analysis messages
// =============================================================================

const (
	MsgAnalyzingReceipt  = "Analyzing receipt..."
	MsgAnalyzingReceipts = "Analyzing %d photos..."
	MsgDownloadFailed    = "Error: could not download the photo"
	MsgNoItemsFound      = "I could not find any items on that receipt. Try a sharper photo with the whole receipt visible."
	MsgAnalysisFailed    = "Analysis failed: %s"
	MsgReceiptHeader     = "🧾 *Receipt analysis* (%s)"
	MsgReceiptTotal      = "*Total: %s CO₂e*"
	MsgEquivalentsHeader = "*That is about:*"
	MsgSuggestionsHeader = "*Suggestions:*"
	MsgDemoNote          = "_Demo mode: this is a sample receipt, not your photo._"
	MsgReceiptSaved      = "✅ Saved %s (%s CO₂e) to your journal."
	MsgReceiptDiscarded  = "🗑 Receipt discarded."
	MsgNoPendingReceipt  = "No receipt waiting to be saved. Send a photo first."
	MsgPendingReplaced   = "The previous unsaved receipt was discarded."
)

// Button labels for receipt confirmation
const (
	BtnSaveReceipt    = "✅ Save"
	BtnDiscardReceipt = "❌ Discard"
)

// =============================================================================
// Journal messages
// =============================================================================

const (
	MsgLogUsage      = "Usage: `/log <item> [quantity]`\nExample: `/log chicken 1.5`"
	MsgLogged        = "📝 Logged %s %s: *%s* CO₂e (%s)"
	MsgUndoDone      = "↩️ Removed %s (%s CO₂e)."
	MsgJournalEmpty  = "Your journal is empty. Send a receipt photo or use /log."
	MsgHistoryHeader = "*Recent entries:*"
	MsgHistoryItem   = "%s %s, *%s*, %s"
)

// =============================================================================
// Stats messages
// =============================================================================

const (
	MsgStatsHeader       = "📊 *Your carbon footprint*"
	MsgStatsPeriod       = "%s: *%s* (%s)"
	MsgStatsByCategory   = "*This month by category:*"
	MsgStatsCategoryItem = "%s %s: %s"
	MsgStatsBelowAverage = "🌍 This month is %s%% below the global average of %s per month."
	MsgStatsAboveAverage = "🌍 This month is %s%% above the global average of %s per month."
	MsgStatsStreak       = "🔥 Streak: %s"
	MsgStatsRank         = "🏆 Leaderboard rank: #%d"
)

// =============================================================================
// Challenge messages
// =============================================================================

const (
	MsgChallengesHeader      = "*Challenges:*"
	MsgChallengeItem         = "%s *%s* (`%s`)\n%s\n%s %s, saves up to %s"
	MsgChallengeJoinUsage    = "Usage: `/join <challenge id>`. See /challenges."
	MsgChallengeCheckinUsage = "Usage: `/checkin <challenge id>`. See /mychallenges."
	MsgChallengeUnknown      = "Unknown challenge `%s`. See /challenges."
	MsgChallengeJoined       = "🚀 Joined *%s*! Check in each day with `/checkin %s`."
	MsgChallengeAlreadyIn    = "You have already joined *%s*."
	MsgChallengeNotJoined    = "You have not joined *%s*. Use `/join %s` first."
	MsgChallengeCheckedIn    = "✅ *%s*: %d/%s\n%s\nCarbon saved: *%s*"
	MsgChallengeCompleted    = "🎉 Challenge *%s* completed! You saved %s."
	MsgChallengeAlreadyToday = "You already checked in to *%s* today."
	MsgChallengeAlreadyDone  = "*%s* is already completed."
	MsgNoChallenges          = "You have not joined any challenges yet. See /challenges."
	MsgMyChallengesHeader    = "*Your challenges:*"
	MsgMyChallengeItem       = "%s *%s* %d/%d\n%s %s saved"
	MsgLeaderboardHeader     = "🏆 *Leaderboard*"
	MsgLeaderboardItem       = "%d. %s: %s saved, %s"
	MsgLeaderboardEmpty      = "Nobody is on the leaderboard yet."
	MsgLeaderboardYou        = "You are #%d with %s saved."
)

// Button label for joining a challenge
const BtnJoinChallenge = "Join %s"

// =============================================================================
// Admin command messages
// =============================================================================

const (
	MsgAdminUsage           = "Usage:\n`/admin users add <user_id>`\n`/admin users remove <user_id>`\n`/admin users list`"
	MsgAdminUserAddUsage    = "Usage: `/admin users add <user_id>`"
	MsgAdminUserRemoveUsage = "Usage: `/admin users remove <user_id>`"
	MsgAdminUserInvalidID   = "Invalid user ID. Give a number."
	MsgAdminUserAdded       = "✅ User `%d` added."
	MsgAdminUserRemoved     = "🗑 User `%d` removed."
	MsgAdminNoUsers         = "No allowed users."
	MsgAdminAllowedUsers    = "*Allowed users:*\n"
)
