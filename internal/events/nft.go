package events

import (
	"fmt"

	"fluxCapacitor/internal/model"
)

// decodeMint expands nft_mint into one MintEvent per data record.
func decodeMint(contractID string, payload map[string]interface{}) ([]model.Event, error) {
	records, err := dataRecords(payload)
	if err != nil {
		return nil, err
	}

	events := make([]model.Event, 0, len(records))
	for i, record := range records {
		f := fields{obj: record}
		event := model.MintEvent{
			OwnerID:    f.str("owner_id"),
			TokenIDs:   f.strs("token_ids"),
			ContractID: contractID,
		}
		if f.err != nil {
			return nil, nested(fmt.Sprintf("data[%d]", i), f.err)
		}
		events = append(events, event)
	}
	return events, nil
}

// decodeTransfer expands nft_transfer into one TransferEvent per data record.
func decodeTransfer(contractID string, payload map[string]interface{}) ([]model.Event, error) {
	records, err := dataRecords(payload)
	if err != nil {
		return nil, err
	}

	events := make([]model.Event, 0, len(records))
	for i, record := range records {
		f := fields{obj: record}
		event := model.TransferEvent{
			OldOwnerID: f.str("old_owner_id"),
			NewOwnerID: f.str("new_owner_id"),
			TokenIDs:   f.strs("token_ids"),
			ContractID: contractID,
		}
		if f.err != nil {
			return nil, nested(fmt.Sprintf("data[%d]", i), f.err)
		}
		events = append(events, event)
	}
	return events, nil
}
