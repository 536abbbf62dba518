package events

import (
	"fluxCapacitor/internal/model"
)

const (
	defaultTokenID   = "None"
	defaultTimestamp = "0"
)

func decodeListMarket(contractID string, payload map[string]interface{}) ([]model.Event, error) {
	params, err := paramsObject(payload)
	if err != nil {
		return nil, err
	}

	f := fields{obj: params}
	event := model.ListMarketEvent{
		OwnerID:       f.str("owner_id"),
		ApprovalID:    f.u64("approval_id"),
		NFTContractID: f.str("nft_contract_id"),
		FTTokenID:     f.str("ft_token_id"),
		Price:         f.str("price"),
		TokenID:       optionalString(params, "token_id", defaultTokenID),
		StartedAt:     optionalString(params, "started_at", defaultTimestamp),
		EndedAt:       optionalString(params, "ended_at", defaultTimestamp),
		IsAuction:     optionalBool(params, "is_auction", false),
		ContractID:    contractID,
	}
	if f.err != nil {
		return nil, nested("params", f.err)
	}
	return []model.Event{event}, nil
}

func decodeUpdateMarket(contractID string, payload map[string]interface{}) ([]model.Event, error) {
	params, err := paramsObject(payload)
	if err != nil {
		return nil, err
	}

	f := fields{obj: params}
	event := model.UpdateMarketEvent{
		OwnerID:       f.str("owner_id"),
		NFTContractID: f.str("nft_contract_id"),
		FTTokenID:     f.str("ft_token_id"),
		Price:         f.str("price"),
		TokenID:       optionalString(params, "token_id", defaultTokenID),
		ContractID:    contractID,
	}
	if f.err != nil {
		return nil, nested("params", f.err)
	}
	return []model.Event{event}, nil
}

func decodeDelistMarket(contractID string, payload map[string]interface{}) ([]model.Event, error) {
	params, err := paramsObject(payload)
	if err != nil {
		return nil, err
	}

	f := fields{obj: params}
	event := model.DelistMarketEvent{
		OwnerID:       f.str("owner_id"),
		NFTContractID: f.str("nft_contract_id"),
		TokenID:       optionalString(params, "token_id", defaultTokenID),
		ContractID:    contractID,
	}
	if f.err != nil {
		return nil, nested("params", f.err)
	}
	return []model.Event{event}, nil
}

// decodeAddBid reads the bid amount into the event price.
func decodeAddBid(contractID string, payload map[string]interface{}) ([]model.Event, error) {
	params, err := paramsObject(payload)
	if err != nil {
		return nil, err
	}

	f := fields{obj: params}
	event := model.AddBidEvent{
		BidderID:      f.str("bidder_id"),
		NFTContractID: f.str("nft_contract_id"),
		FTTokenID:     f.str("ft_token_id"),
		Price:         f.str("amount"),
		TokenID:       optionalString(params, "token_id", defaultTokenID),
		ContractID:    contractID,
	}
	if f.err != nil {
		return nil, nested("params", f.err)
	}
	return []model.Event{event}, nil
}

func decodeAddOffer(contractID string, payload map[string]interface{}) ([]model.Event, error) {
	params, err := paramsObject(payload)
	if err != nil {
		return nil, err
	}

	f := fields{obj: params}
	event := model.AddOfferEvent{
		NFTContractID: f.str("nft_contract_id"),
		BuyerID:       f.str("buyer_id"),
		FTTokenID:     f.str("ft_token_id"),
		Price:         f.str("price"),
		TokenID:       optionalString(params, "token_id", defaultTokenID),
		ContractID:    contractID,
	}
	if f.err != nil {
		return nil, nested("params", f.err)
	}
	return []model.Event{event}, nil
}

func decodeRemoveOffer(contractID string, payload map[string]interface{}) ([]model.Event, error) {
	params, err := paramsObject(payload)
	if err != nil {
		return nil, err
	}

	f := fields{obj: params}
	event := model.RemoveOfferEvent{
		NFTContractID: f.str("nft_contract_id"),
		BuyerID:       f.str("buyer_id"),
		TokenID:       optionalString(params, "token_id", defaultTokenID),
		ContractID:    contractID,
	}
	if f.err != nil {
		return nil, nested("params", f.err)
	}
	return []model.Event{event}, nil
}

func decodeResolvePurchase(contractID string, payload map[string]interface{}) ([]model.Event, error) {
	params, err := paramsObject(payload)
	if err != nil {
		return nil, err
	}

	f := fields{obj: params}
	event := model.ResolvePurchaseEvent{
		OwnerID:       f.str("owner_id"),
		BuyerID:       f.str("buyer_id"),
		NFTContractID: f.str("nft_contract_id"),
		FTTokenID:     f.str("ft_token_id"),
		Price:         f.str("price"),
		TokenID:       optionalString(params, "token_id", defaultTokenID),
		IsOffer:       optionalBool(params, "is_offer", false),
		ContractID:    contractID,
	}
	if f.err != nil {
		return nil, nested("params", f.err)
	}
	return []model.Event{event}, nil
}
