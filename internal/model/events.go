package model

// EventKind names a marketplace domain event.
type EventKind string

const (
	KindMint            EventKind = "mint"
	KindTransfer        EventKind = "transfer"
	KindListMarket      EventKind = "list_market"
	KindUpdateMarket    EventKind = "update_market"
	KindDelistMarket    EventKind = "delist_market"
	KindAddBid          EventKind = "add_bid"
	KindAddOffer        EventKind = "add_offer"
	KindRemoveOffer     EventKind = "remove_offer"
	KindResolvePurchase EventKind = "resolve_purchase"
)

// Event is a decoded marketplace action. The JSON encoding of each
// implementation is the request body sent to the marketplace API.
type Event interface {
	Kind() EventKind
	// Contract is the executor account that emitted the log.
	Contract() string
}

// MintEvent records tokens minted to an owner.
type MintEvent struct {
	TokenIDs   []string `json:"token_ids"`
	ContractID string   `json:"contract_id"`
	OwnerID    string   `json:"owner_id"`
}

func (e MintEvent) Kind() EventKind  { return KindMint }
func (e MintEvent) Contract() string { return e.ContractID }

// TransferEvent records tokens moved between owners.
type TransferEvent struct {
	TokenIDs   []string `json:"token_ids"`
	ContractID string   `json:"contract_id"`
	OldOwnerID string   `json:"old_owner_id"`
	NewOwnerID string   `json:"new_owner_id"`
}

func (e TransferEvent) Kind() EventKind  { return KindTransfer }
func (e TransferEvent) Contract() string { return e.ContractID }

// ListMarketEvent lists a token for sale or auction.
type ListMarketEvent struct {
	TokenID       string `json:"token_id"`
	NFTContractID string `json:"nft_contract_id"`
	OwnerID       string `json:"owner_id"`
	ApprovalID    uint64 `json:"approval_id"`
	FTTokenID     string `json:"ft_token_id"`
	Price         string `json:"price"`
	StartedAt     string `json:"started_at"`
	EndedAt       string `json:"ended_at"`
	IsAuction     bool   `json:"is_auction"`
	ContractID    string `json:"-"`
}

func (e ListMarketEvent) Kind() EventKind  { return KindListMarket }
func (e ListMarketEvent) Contract() string { return e.ContractID }

// UpdateMarketEvent changes the price of a listing.
type UpdateMarketEvent struct {
	TokenID       string `json:"token_id"`
	NFTContractID string `json:"nft_contract_id"`
	OwnerID       string `json:"owner_id"`
	FTTokenID     string `json:"ft_token_id"`
	Price         string `json:"price"`
	ContractID    string `json:"-"`
}

func (e UpdateMarketEvent) Kind() EventKind  { return KindUpdateMarket }
func (e UpdateMarketEvent) Contract() string { return e.ContractID }

// DelistMarketEvent removes a listing.
type DelistMarketEvent struct {
	TokenID       string `json:"token_id"`
	NFTContractID string `json:"nft_contract_id"`
	OwnerID       string `json:"owner_id"`
	ContractID    string `json:"-"`
}

func (e DelistMarketEvent) Kind() EventKind  { return KindDelistMarket }
func (e DelistMarketEvent) Contract() string { return e.ContractID }

// AddBidEvent records an auction bid. Price comes from the log's amount field.
type AddBidEvent struct {
	TokenID       string `json:"token_id"`
	NFTContractID string `json:"nft_contract_id"`
	BidderID      string `json:"bidder_id"`
	FTTokenID     string `json:"ft_token_id"`
	Price         string `json:"price"`
	ContractID    string `json:"-"`
}

func (e AddBidEvent) Kind() EventKind  { return KindAddBid }
func (e AddBidEvent) Contract() string { return e.ContractID }

// AddOfferEvent records a buyer offer.
type AddOfferEvent struct {
	TokenID       string `json:"token_id"`
	NFTContractID string `json:"nft_contract_id"`
	BuyerID       string `json:"buyer_id"`
	FTTokenID     string `json:"ft_token_id"`
	Price         string `json:"price"`
	ContractID    string `json:"-"`
}

func (e AddOfferEvent) Kind() EventKind  { return KindAddOffer }
func (e AddOfferEvent) Contract() string { return e.ContractID }

// RemoveOfferEvent withdraws a buyer offer.
type RemoveOfferEvent struct {
	TokenID       string `json:"token_id"`
	NFTContractID string `json:"nft_contract_id"`
	BuyerID       string `json:"buyer_id"`
	ContractID    string `json:"-"`
}

func (e RemoveOfferEvent) Kind() EventKind  { return KindRemoveOffer }
func (e RemoveOfferEvent) Contract() string { return e.ContractID }

// ResolvePurchaseEvent settles a sale between owner and buyer.
type ResolvePurchaseEvent struct {
	TokenID       string `json:"token_id"`
	NFTContractID string `json:"nft_contract_id"`
	OwnerID       string `json:"owner_id"`
	FTTokenID     string `json:"ft_token_id"`
	Price         string `json:"price"`
	BuyerID       string `json:"buyer_id"`
	IsOffer       bool   `json:"is_offer"`
	ContractID    string `json:"-"`
}

func (e ResolvePurchaseEvent) Kind() EventKind  { return KindResolvePurchase }
func (e ResolvePurchaseEvent) Contract() string { return e.ContractID }
