package miner

import "strconv"

func modeString(dryRun bool) string {
	if dryRun {
		return "dry-run"
	}
	return "live"
}

func roundsString(rounds int) string {
	if rounds <= 0 {
		return "unlimited"
	}
	return strconv.Itoa(rounds)
}
