package handler

import (
	"errors"
	"net/http"

	"meetly/internal/domain"
	"meetly/internal/middleware"
	"meetly/internal/repository"

	"github.com/gin-gonic/gin"
)

type WalletHandler struct {
	wallets repository.WalletRepository
	ledger  repository.LedgerRepository
}

func NewWalletHandler(store repository.Repos) *WalletHandler {
	return &WalletHandler{wallets: store.Wallets(), ledger: store.Ledger()}
}

// GetWallet handles GET /me/wallet.
func (h *WalletHandler) GetWallet(c *gin.Context) {
	w, err := h.wallets.Get(c.Request.Context(), middleware.GetUserID(c))
	if errors.Is(err, repository.ErrNotFound) {
		err = domain.Errorf(domain.KindNotFound, "user not found")
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"balance":       w.Balance,
		"escrow":        w.Escrow,
		"totalSpending": w.TotalSpending,
		"vipTier":       w.VIPTier,
		"isPro":         w.IsPro,
	})
}

// ListTransactions handles GET /me/wallet/transactions, newest first.
func (h *WalletHandler) ListTransactions(c *gin.Context) {
	limit, offset := parsePagination(c)
	list, err := h.ledger.ListByUser(c.Request.Context(), middleware.GetUserID(c), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": list, "limit": limit, "offset": offset})
}
