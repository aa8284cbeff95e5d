package api

import (
	"net/http"

	_ "github.com/AlexZinkM/joint-wallet/docs"
	"github.com/AlexZinkM/joint-wallet/internal/handler"

	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
)

// SetupRouter sets up router with handlers
func SetupRouter(safeHandler *handler.SafeHandler, delegationHandler *handler.DelegationHandler, logger *zap.Logger) http.Handler {
	mux := http.NewServeMux()

	// Swagger UI
	mux.HandleFunc("/swagger/", httpSwagger.WrapHandler)

	// Shared account transactions
	mux.HandleFunc("POST /safes/{account}/transactions", safeHandler.ProposeTransaction)
	mux.HandleFunc("GET /safes/{account}/transactions", safeHandler.ListTransactions)
	mux.HandleFunc("GET /transactions/{hash}", safeHandler.GetTransaction)
	mux.HandleFunc("POST /transactions/{hash}/confirmations", safeHandler.ConfirmTransaction)
	mux.HandleFunc("POST /transactions/{hash}/execute", safeHandler.ExecuteTransaction)
	mux.HandleFunc("GET /transactions/{hash}/qr", safeHandler.TransactionQR)

	// Delegation
	mux.HandleFunc("POST /wallets/{walletId}/delegation", delegationHandler.RequestDelegation)
	mux.HandleFunc("POST /webhooks/delegation", delegationHandler.Webhook)

	return withRequestLogging(logger, mux)
}
