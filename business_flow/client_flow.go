// Package businessflow contains the core business logic and use cases for client workflows
package businessflow

import (
	"context"
	"log"
	"math"

	"github.com/velmart/velmart-backend/app/dto"
	"github.com/velmart/velmart-backend/models"
	"github.com/velmart/velmart-backend/repository"
	"github.com/velmart/velmart-backend/utils"
	"gorm.io/gorm"
)

// ClientFlow handles client registration, balance movements and purchase
// history for the bot surface.
type ClientFlow interface {
	GetOrCreateClient(ctx context.Context, req *dto.GetOrCreateClientRequest, metadata *ClientMetadata) (*dto.ClientDTO, error)
	GetBalance(ctx context.Context, telegramID int64, metadata *ClientMetadata) (*dto.BalanceDTO, error)
	AdjustBalance(ctx context.Context, telegramID int64, req *dto.AdjustBalanceRequest, metadata *ClientMetadata) (*dto.BalanceDTO, error)
	TestTopUp(ctx context.Context, telegramID int64, req *dto.TestTopUpRequest, metadata *ClientMetadata) (*dto.BalanceDTO, error)
	DirectPurchase(ctx context.Context, req *dto.DirectPurchaseRequest, metadata *ClientMetadata) (*dto.DirectPurchaseResponse, error)
	GetPurchases(ctx context.Context, telegramID int64, metadata *ClientMetadata) ([]dto.PurchaseDTO, error)
}

// ClientFlowImpl implements ClientFlow
type ClientFlowImpl struct {
	clientRepo   repository.ClientRepository
	purchaseRepo repository.PurchaseRepository
	positionRepo repository.PositionRepository
	db           *gorm.DB
}

func NewClientFlow(
	clientRepo repository.ClientRepository,
	purchaseRepo repository.PurchaseRepository,
	positionRepo repository.PositionRepository,
	db *gorm.DB,
) ClientFlow {
	return &ClientFlowImpl{
		clientRepo:   clientRepo,
		purchaseRepo: purchaseRepo,
		positionRepo: positionRepo,
		db:           db,
	}
}

// GetOrCreateClient registers the client on first contact and refreshes the
// profile fields on every later call.
func (f *ClientFlowImpl) GetOrCreateClient(ctx context.Context, req *dto.GetOrCreateClientRequest, metadata *ClientMetadata) (*dto.ClientDTO, error) {
	if req.TelegramID == 0 {
		return nil, ErrTelegramIDRequired
	}

	client, err := f.clientRepo.ByTelegramID(ctx, req.TelegramID)
	if err != nil {
		return nil, NewBusinessError("CLIENT_LOOKUP_FAILED", "Failed to look up client", err)
	}
	if client == nil {
		client = &models.Client{
			TelegramID: req.TelegramID,
			Username:   req.Username,
			FirstName:  req.FirstName,
			LastName:   req.LastName,
		}
		if err := f.clientRepo.Save(ctx, client); err != nil {
			return nil, NewBusinessError("CLIENT_CREATE_FAILED", "Failed to register client", err)
		}
	} else if client.Username != req.Username || client.FirstName != req.FirstName || client.LastName != req.LastName {
		client.Username = req.Username
		client.FirstName = req.FirstName
		client.LastName = req.LastName
		if err := f.clientRepo.Update(ctx, client); err != nil {
			return nil, NewBusinessError("CLIENT_UPDATE_FAILED", "Failed to refresh client profile", err)
		}
	}

	d := ToClientDTO(*client)
	return &d, nil
}

// GetBalance returns the spendable balance, registering a bare client row
// when the telegram id is unknown.
func (f *ClientFlowImpl) GetBalance(ctx context.Context, telegramID int64, metadata *ClientMetadata) (*dto.BalanceDTO, error) {
	client, err := f.getOrCreateBare(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	return &dto.BalanceDTO{TelegramID: client.TelegramID, Balance: client.Balance}, nil
}

// AdjustBalance applies a signed delta to the balance. Negative deltas that
// would overdraw the account are rejected.
func (f *ClientFlowImpl) AdjustBalance(ctx context.Context, telegramID int64, req *dto.AdjustBalanceRequest, metadata *ClientMetadata) (*dto.BalanceDTO, error) {
	if req.Amount == 0 || math.IsNaN(req.Amount) || math.IsInf(req.Amount, 0) {
		return nil, ErrZeroAdjustment
	}
	client, err := f.getOrCreateBare(ctx, telegramID)
	if err != nil {
		return nil, err
	}

	ok, err := f.clientRepo.AddToBalance(ctx, client.ID, req.Amount)
	if err != nil {
		return nil, NewBusinessError("BALANCE_ADJUST_FAILED", "Failed to adjust balance", err)
	}
	if !ok {
		return nil, ErrInsufficientBalance
	}

	fresh, err := f.clientRepo.ByID(ctx, client.ID)
	if err != nil || fresh == nil {
		return nil, NewBusinessError("BALANCE_READBACK_FAILED", "Failed to read balance after adjust", err)
	}
	return &dto.BalanceDTO{TelegramID: fresh.TelegramID, Balance: fresh.Balance}, nil
}

// TestTopUp credits a fixed test amount, defaulting when the request omits
// one. Kept separate from AdjustBalance so it can be disabled in production
// routing.
func (f *ClientFlowImpl) TestTopUp(ctx context.Context, telegramID int64, req *dto.TestTopUpRequest, metadata *ClientMetadata) (*dto.BalanceDTO, error) {
	amount := req.Amount
	if amount <= 0 {
		amount = utils.DefaultTestTopUpAmount
	}
	return f.AdjustBalance(ctx, telegramID, &dto.AdjustBalanceRequest{Amount: amount}, metadata)
}

// DirectPurchase deducts the position price from the client's balance and
// records the history entry in one transaction.
func (f *ClientFlowImpl) DirectPurchase(ctx context.Context, req *dto.DirectPurchaseRequest, metadata *ClientMetadata) (*dto.DirectPurchaseResponse, error) {
	if req.TelegramID == 0 {
		return nil, ErrTelegramIDRequired
	}
	if req.PositionID == 0 {
		return nil, ErrPositionIDRequired
	}

	client, err := f.clientRepo.ByTelegramID(ctx, req.TelegramID)
	if err != nil {
		return nil, NewBusinessError("CLIENT_LOOKUP_FAILED", "Failed to look up client", err)
	}
	if client == nil {
		return nil, ErrClientNotFound
	}

	position, err := f.positionRepo.ByIDWithProduct(ctx, req.PositionID)
	if err != nil {
		return nil, NewBusinessError("POSITION_LOOKUP_FAILED", "Failed to look up position", err)
	}
	if position == nil || position.Product.ID == 0 {
		return nil, ErrPositionNotFound
	}
	if position.Price <= 0 {
		return nil, ErrInvalidPrice
	}

	var purchase *models.Purchase
	err = repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		ok, err := f.clientRepo.AddToBalance(txCtx, client.ID, -position.Price)
		if err != nil {
			return err
		}
		if !ok {
			return ErrInsufficientBalance
		}
		purchase = &models.Purchase{
			ClientID:     client.ID,
			Source:       models.PurchaseSourceDirect,
			PositionID:   position.ID,
			PositionName: position.Name,
			Price:        position.Price,
			ProductName:  position.Product.Name,
			Location:     position.Location,
			PurchaseDate: utils.UTCNow(),
		}
		return f.purchaseRepo.Save(txCtx, purchase)
	})
	if err != nil {
		if IsInsufficientBalance(err) {
			return nil, err
		}
		return nil, NewBusinessError("DIRECT_PURCHASE_FAILED", "Failed to complete purchase", err)
	}

	fresh, err := f.clientRepo.ByID(ctx, client.ID)
	if err != nil || fresh == nil {
		// The purchase committed; fall back to the computed balance.
		log.Printf("direct purchase %d: balance readback failed: %v", purchase.ID, err)
		return &dto.DirectPurchaseResponse{
			Purchase: ToPurchaseDTO(*purchase),
			Balance:  client.Balance - position.Price,
		}, nil
	}
	return &dto.DirectPurchaseResponse{
		Purchase: ToPurchaseDTO(*purchase),
		Balance:  fresh.Balance,
	}, nil
}

// GetPurchases returns the client's full purchase history in insertion order.
func (f *ClientFlowImpl) GetPurchases(ctx context.Context, telegramID int64, metadata *ClientMetadata) ([]dto.PurchaseDTO, error) {
	client, err := f.clientRepo.ByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, NewBusinessError("CLIENT_LOOKUP_FAILED", "Failed to look up client", err)
	}
	if client == nil {
		return nil, ErrClientNotFound
	}
	purchases, err := f.purchaseRepo.ByClientID(ctx, client.ID)
	if err != nil {
		return nil, NewBusinessError("PURCHASE_HISTORY_FAILED", "Failed to load purchase history", err)
	}
	out := make([]dto.PurchaseDTO, 0, len(purchases))
	for _, p := range purchases {
		out = append(out, ToPurchaseDTO(*p))
	}
	return out, nil
}

func (f *ClientFlowImpl) getOrCreateBare(ctx context.Context, telegramID int64) (*models.Client, error) {
	if telegramID == 0 {
		return nil, ErrTelegramIDRequired
	}
	client, err := f.clientRepo.ByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, NewBusinessError("CLIENT_LOOKUP_FAILED", "Failed to look up client", err)
	}
	if client == nil {
		client = &models.Client{TelegramID: telegramID}
		if err := f.clientRepo.Save(ctx, client); err != nil {
			return nil, NewBusinessError("CLIENT_CREATE_FAILED", "Failed to register client", err)
		}
	}
	return client, nil
}
