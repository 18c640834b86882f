package broadcast

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/pscheid92/roomrelay/internal/domain"
)

const syntheticRoomSize = 50

var (
	allClearPayload   = mustSynthetic(false)
	allFlaggedPayload = mustSynthetic(true)
)

// mustSynthetic builds the fixed fake room of sids 1..50. The all-clear
// room carries no sync field at all.
func mustSynthetic(flagged bool) []byte {
	var flag json.RawMessage
	if flagged {
		flag = json.RawMessage(`true`)
	}
	players := make([]domain.PlayerSummary, 0, syntheticRoomSize)
	for sid := 1; sid <= syntheticRoomSize; sid++ {
		players = append(players, domain.PlayerSummary{
			SID:  json.RawMessage(strconv.Itoa(sid)),
			Sync: flag,
		})
	}
	data, err := Encode(domain.ActionUpdate, players)
	if err != nil {
		panic(fmt.Sprintf("synthetic payload: %v", err))
	}
	return data
}

// Effective resolves what a recipient with the given view override receives
// instead of payload.
func Effective(view domain.ViewOverride, payload []byte) ([]byte, bool) {
	switch view {
	case domain.ViewAllClear:
		return allClearPayload, true
	case domain.ViewAllFlagged:
		return allFlaggedPayload, true
	default:
		return payload, false
	}
}

// Encode marshals an outbound envelope.
func Encode(action string, data any) ([]byte, error) {
	b, err := json.Marshal(domain.Outbound{Action: action, Data: data})
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s message: %w", action, err)
	}
	return b, nil
}
