package ledger

import (
	"encoding/json"
	"fmt"

	"harvest-ledger/internal/models"
)

// state is the persisted document. The summary is not stored; it is
// recomputed on load.
type state struct {
	SellTrades         []models.SellTrade         `json:"sellTrades"`
	ReinvestmentTrades []models.ReinvestmentTrade `json:"reinvestmentTrades"`
}

// browserState is the envelope the original browser app wrote to local
// storage. Accepting it lets an exported local-storage entry be restored.
type browserState struct {
	State   *state `json:"state"`
	Version *int   `json:"version"`
}

func encodeState(s state) ([]byte, error) {
	if s.SellTrades == nil {
		s.SellTrades = []models.SellTrade{}
	}
	if s.ReinvestmentTrades == nil {
		s.ReinvestmentTrades = []models.ReinvestmentTrade{}
	}
	return json.Marshal(s)
}

func decodeState(data []byte) (state, error) {
	var wrapped browserState
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.State != nil && wrapped.Version != nil {
		return *wrapped.State, nil
	}

	var s state
	if err := json.Unmarshal(data, &s); err != nil {
		return state{}, fmt.Errorf("decoding ledger state: %w", err)
	}
	return s, nil
}
