// server.go - HTTP surface over the operation orchestrator.

package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/shadepool/shade/internal/engine"
	"github.com/shadepool/shade/internal/merkle"
	"github.com/shadepool/shade/internal/note"
	"github.com/shadepool/shade/internal/proofs"
	"github.com/shadepool/shade/internal/registry"

	"github.com/ethereum/go-ethereum/common"
)

// Server exposes the engine over HTTP.
type Server struct {
	engine *engine.Engine
	log    zerolog.Logger
}

// NewServer wraps an engine.
func NewServer(e *engine.Engine, log zerolog.Logger) *Server {
	return &Server{engine: e, log: log}
}

// Router builds the gin router with all endpoints mounted.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	v1 := r.Group("/v1")
	v1.POST("/deposit", s.deposit)
	v1.POST("/withdraw", s.withdraw)
	v1.POST("/transfer", s.spend(engine.OpTransfer))
	v1.POST("/split", s.spend(engine.OpSplit))
	v1.POST("/join", s.spend(engine.OpJoin))
	v1.POST("/joinsplit", s.spend(engine.OpJoinSplit))
	v1.POST("/swap", s.swap)
	v1.POST("/defi-call", s.defiCall)
	v1.GET("/root", s.root)
	v1.GET("/path/:commitment", s.path)

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return r
}

func (s *Server) deposit(c *gin.Context) {
	var req depositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	asset, err := req.Asset.toAsset()
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	amount, err := amountFrom(req.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	r, err := s.engine.Deposit(engine.DepositArgs{
		Depositor:  req.Depositor,
		Domain:     note.Domain(req.Domain),
		Asset:      asset,
		Amount:     amount,
		Footer:     req.Footer,
		Commitment: req.Commitment,
		Proof:      req.Proof,
	})
	s.respond(c, r, err)
}

func (s *Server) withdraw(c *gin.Context) {
	var req withdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	asset, err := req.Asset.toAsset()
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	amount, err := amountFrom(req.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	refund, err := amountFrom(req.RelayerRefund)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	r, err := s.engine.Withdraw(engine.WithdrawArgs{
		Caller:        req.Caller,
		Root:          req.Root,
		Nullifier:     req.Nullifier,
		Domain:        note.Domain(req.Domain),
		Asset:         asset,
		Amount:        amount,
		Recipient:     req.Recipient,
		Relayer:       req.Relayer,
		RelayerRefund: refund,
		Proof:         req.Proof,
	})
	s.respond(c, r, err)
}

// spend builds a handler for one member of the re-commitment family.
func (s *Server) spend(op string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req spendRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		args, err := req.toArgs()
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		var r *engine.Receipt
		switch op {
		case engine.OpTransfer:
			r, err = s.engine.Transfer(engine.TransferArgs(args))
		case engine.OpSplit:
			r, err = s.engine.Split(engine.SplitArgs(args))
		case engine.OpJoin:
			r, err = s.engine.Join(engine.JoinArgs(args))
		default:
			r, err = s.engine.JoinSplit(engine.JoinSplitArgs(args))
		}
		s.respond(c, r, err)
	}
}

func (s *Server) swap(c *gin.Context) {
	var req swapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	assetIn, err := req.AssetIn.toAsset()
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	assetOut, err := req.AssetOut.toAsset()
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	amountIn, err := amountFrom(req.AmountIn)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	minOut, err := amountFrom(req.MinOut)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	r, err := s.engine.Swap(engine.SwapArgs{
		Caller:        req.Caller,
		Root:          req.Root,
		Nullifier:     req.Nullifier,
		NewCommitment: req.NewCommitment,
		OutFooter:     req.OutFooter,
		Domain:        note.Domain(req.Domain),
		AssetIn:       assetIn,
		AmountIn:      amountIn,
		AssetOut:      assetOut,
		MinOut:        minOut,
		CallData:      req.CallData,
		Proof:         req.Proof,
	})
	s.respond(c, r, err)
}

func (s *Server) defiCall(c *gin.Context) {
	var req defiCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	lanes := make([]engine.VenueLane, 0, len(req.Lanes))
	for _, l := range req.Lanes {
		assetIn, err := l.AssetIn.toAsset()
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		assetOut, err := l.AssetOut.toAsset()
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		amountIn, err := amountFrom(l.AmountIn)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		minOut, err := amountFrom(l.MinOut)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		refund, err := amountFrom(l.RelayerRefund)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		lanes = append(lanes, engine.VenueLane{
			Nullifier:     l.Nullifier,
			NewCommitment: l.NewCommitment,
			OutFooter:     l.OutFooter,
			AssetIn:       assetIn,
			AmountIn:      amountIn,
			AssetOut:      assetOut,
			MinOut:        minOut,
			RelayerRefund: refund,
		})
	}
	r, err := s.engine.DefiCall(engine.DefiCallArgs{
		Caller:   req.Caller,
		Relayer:  req.Relayer,
		Root:     req.Root,
		Domain:   note.Domain(req.Domain),
		Lanes:    lanes,
		CallData: req.CallData,
		Proof:    req.Proof,
	})
	s.respond(c, r, err)
}

func (s *Server) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"root": s.engine.CurrentRoot()})
}

func (s *Server) path(c *gin.Context) {
	cm := common.HexToHash(c.Param("commitment"))
	siblings, directions, root, err := s.engine.Path(cm)
	if err != nil {
		c.JSON(http.StatusNotFound, errorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, pathResponse{Siblings: siblings, Directions: directions, Root: root})
}

func (s *Server) respond(c *gin.Context, r *engine.Receipt, err error) {
	if err != nil {
		c.JSON(statusFor(err), errorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, receiptFrom(r))
}

// statusFor buckets engine failures into HTTP statuses: conflicts for
// consumed identifiers, forbidden for gates, bad request otherwise.
func statusFor(err error) int {
	switch {
	case errors.Is(err, registry.ErrNullifierUsed),
		errors.Is(err, registry.ErrNoteFooterUsed),
		errors.Is(err, registry.ErrNoteAlreadyCreated):
		return http.StatusConflict
	case errors.Is(err, registry.ErrNullifierLocked):
		return http.StatusLocked
	case errors.Is(err, engine.ErrNotAuthorized),
		errors.Is(err, engine.ErrCallerNotRelayer),
		errors.Is(err, engine.ErrRelayerNotRegistered):
		return http.StatusForbidden
	case errors.Is(err, proofs.ErrInvalidProof),
		errors.Is(err, proofs.ErrUnknownOperation),
		errors.Is(err, engine.ErrUnknownRoot),
		errors.Is(err, engine.ErrZeroAmount),
		errors.Is(err, engine.ErrDuplicateFooter),
		errors.Is(err, engine.ErrArityMismatch),
		errors.Is(err, merkle.ErrTreeFull),
		errors.Is(err, engine.ErrSlippage):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
