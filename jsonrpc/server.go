package jsonrpc

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/handler"
	"github.com/creachadair/jrpc2/jhttp"
	"github.com/mezonai/ppy/errors"
	"github.com/mezonai/ppy/exception"
	"github.com/mezonai/ppy/faucet"
	"github.com/mezonai/ppy/jsonx"
	"github.com/mezonai/ppy/logx"
	"github.com/mezonai/ppy/plugin"
	"github.com/mezonai/ppy/ratelimit"
	"github.com/mezonai/ppy/security/validation"
	"github.com/mezonai/ppy/types"
)

const (
	DefaultMaxBodyBytes = 1 << 20

	codeRateLimited = jrpc2.Code(-32029)
)

// pluginErrorCodes maps plugin failures onto JSON-RPC codes. Caller errors
// share InvalidParams; chain and host failures get their own server codes.
var pluginErrorCodes = map[errors.PluginErrorCode]jrpc2.Code{
	errors.ErrCodeMissingInput:      jrpc2.InvalidParams,
	errors.ErrCodeInvalidKey:        jrpc2.InvalidParams,
	errors.ErrCodeInvalidBundle:     jrpc2.InvalidParams,
	errors.ErrCodeInvalidRecipient:  jrpc2.InvalidParams,
	errors.ErrCodeInvalidAmount:     jrpc2.InvalidParams,
	errors.ErrCodeInvalidInput:      jrpc2.InvalidParams,
	errors.ErrCodeRPCFailure:        jrpc2.Code(-32001),
	errors.ErrCodeBroadcastRejected: jrpc2.Code(-32002),
	errors.ErrCodeSignatureRejected: jrpc2.Code(-32003),
	errors.ErrCodeNotFound:          jrpc2.Code(-32004),
	errors.ErrCodeTimeout:           jrpc2.Code(-32005),
	errors.ErrCodeFaucetExhausted:   jrpc2.Code(-32006),
	errors.ErrCodeInvalidState:      jrpc2.Code(-32007),
	errors.ErrCodeInternal:          jrpc2.InternalError,
}

// Bridge is the plugin surface exposed to an out-of-process host.
type Bridge interface {
	GetEndorsedNetwork() types.Network
	CheckNetwork(ctx context.Context, network types.Network) bool
	IsValidRecipient(name string) bool
	PrivateToPublic(wif, prefix string) (string, error)
	BalanceFor(ctx context.Context, account types.Account, token types.Token) (types.Token, error)
	Transfer(ctx context.Context, params types.TransferParams) (*types.TransferResult, error)
	Register(ctx context.Context, name, password, referrer string) (*faucet.Result, error)
}

var _ Bridge = (*plugin.PPY)(nil)

type errorData struct {
	Code    errors.PluginErrorCode `json:"code"`
	Message string                 `json:"message"`
	Digest  string                 `json:"digest,omitempty"`
	Payload string                 `json:"payload,omitempty"`
}

func toJRPC2Error(err error) error {
	if err == nil {
		return nil
	}
	data := errorData{Code: errors.CodeOf(err), Message: err.Error()}
	var pe *errors.PluginError
	if stderrors.As(err, &pe) {
		data.Message = pe.Message
	}
	// The chain's reason is carried inside the broadcast failure.
	var be *errors.BroadcastError
	if stderrors.As(err, &be) {
		data.Code = errors.ErrCodeBroadcastRejected
		data.Digest = be.Digest
		data.Payload = be.Payload
	}

	rpcCode, ok := pluginErrorCodes[data.Code]
	if !ok {
		rpcCode = jrpc2.InternalError
	}
	return jrpc2.Errorf(rpcCode, "%s", data.Message).WithData(data)
}

// --- Params/Results ---

type checkNetworkParams struct {
	Network types.Network `json:"network"`
}

type checkNetworkResponse struct {
	Reachable bool `json:"reachable"`
}

type isValidRecipientParams struct {
	Name string `json:"name"`
}

type isValidRecipientResponse struct {
	Valid bool `json:"valid"`
}

type privateToPublicParams struct {
	PrivateKey string `json:"private_key"`
	Prefix     string `json:"prefix"`
}

type privateToPublicResponse struct {
	PublicKey string `json:"public_key"`
}

type balanceParams struct {
	Account types.Account `json:"account"`
	Token   types.Token   `json:"token"`
}

type registerParams struct {
	Name     string `json:"name"`
	Password string `json:"password"`
	Referrer string `json:"referrer"`
}

// --- Server ---

type Server struct {
	addr         string
	bridge       Bridge
	limiter      *ratelimit.BridgeLimiter
	maxBodyBytes int64
	corsConfig   CORSConfig
	httpServer   *http.Server
}

type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
	MaxAge         int
}

// NewServer wires bridge behind addr. A nil limiter disables rate limiting.
func NewServer(addr string, bridge Bridge, limiter *ratelimit.BridgeLimiter, maxBodyBytes int64) *Server {
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}
	return &Server{
		addr:         addr,
		bridge:       bridge,
		limiter:      limiter,
		maxBodyBytes: maxBodyBytes,
	}
}

// SetCORSConfig allows configuring CORS settings
func (s *Server) SetCORSConfig(config CORSConfig) {
	s.corsConfig = config
}

// Handler serves the JSON-RPC bridge over HTTP POST.
func (s *Server) Handler() (http.Handler, func()) {
	jh := jhttp.NewBridge(s.buildMethodMap(), &jhttp.BridgeOptions{Server: &jrpc2.ServerOptions{}})

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.setCORSHeaders(w, r)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		if s.limiter != nil {
			ip := extractClientIPFromRequest(r)
			if err := s.limiter.AllowIP(ip); err != nil {
				logx.Warn("RPC BRIDGE", err.Error())
				writeRateLimited(w, err)
				return
			}
		}
		r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
		jh.ServeHTTP(w, r)
	})
	return h, func() { _ = jh.Close() }
}

func writeRateLimited(w http.ResponseWriter, err error) {
	body, _ := jsonx.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      nil,
		"error":   map[string]any{"code": codeRateLimited, "message": err.Error()},
	})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	_, _ = w.Write(body)
}

// Start listens on addr in the background.
func (s *Server) Start() {
	h, closeBridge := s.Handler()
	mux := http.NewServeMux()
	mux.Handle("/", h)
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	exception.SafeGo("RPCBridge", func() {
		defer closeBridge()
		logx.Info("RPC BRIDGE", fmt.Sprintf("listening on %s", s.addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logx.Error("RPC BRIDGE", fmt.Sprintf("server stopped: %v", err))
		}
	})
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	if s.limiter != nil {
		s.limiter.Stop()
	}
	return s.httpServer.Shutdown(ctx)
}

// Build jrpc2 method map
func (s *Server) buildMethodMap() handler.Map {
	return handler.Map{
		MethodEndorsedNetwork: handler.New(func(ctx context.Context) (types.Network, error) {
			return s.bridge.GetEndorsedNetwork(), nil
		}),
		MethodCheckNetwork: handler.New(func(ctx context.Context, p checkNetworkParams) (*checkNetworkResponse, error) {
			network := p.Network
			if network.Host == "" {
				network = s.bridge.GetEndorsedNetwork()
			}
			return &checkNetworkResponse{Reachable: s.bridge.CheckNetwork(ctx, network)}, nil
		}),
		MethodIsValidRecipient: handler.New(func(ctx context.Context, p isValidRecipientParams) (*isValidRecipientResponse, error) {
			return &isValidRecipientResponse{Valid: s.bridge.IsValidRecipient(p.Name)}, nil
		}),
		MethodPrivateToPublic: handler.New(func(ctx context.Context, p privateToPublicParams) (*privateToPublicResponse, error) {
			pub, err := s.bridge.PrivateToPublic(p.PrivateKey, p.Prefix)
			if err != nil {
				return nil, toJRPC2Error(err)
			}
			return &privateToPublicResponse{PublicKey: pub}, nil
		}),
		MethodBalance: handler.New(func(ctx context.Context, p balanceParams) (*types.Token, error) {
			token, err := s.bridge.BalanceFor(ctx, p.Account, p.Token)
			if err != nil {
				return nil, toJRPC2Error(err)
			}
			return &token, nil
		}),
		MethodTransfer: handler.New(func(ctx context.Context, p types.TransferParams) (*types.TransferResult, error) {
			if s.limiter != nil {
				if err := s.limiter.AllowAccount(p.Account.Name); err != nil {
					return nil, jrpc2.Errorf(codeRateLimited, "%s", err.Error())
				}
			}
			if err := validation.ValidateTransferParams(p); err != nil {
				return nil, toJRPC2Error(err)
			}
			if !p.Prompts() && !p.HasInjectedKeys() {
				return nil, toJRPC2Error(errors.NewError(errors.ErrCodeInvalidInput, errors.ErrMsgSilentSigning))
			}
			res, err := s.bridge.Transfer(ctx, p)
			if err != nil {
				logx.Warn("RPC BRIDGE", fmt.Sprintf("transfer from %s failed: %v", p.Account.Name, errors.CodeOf(err)))
				return nil, toJRPC2Error(err)
			}
			return res, nil
		}),
		MethodRegister: handler.New(func(ctx context.Context, p registerParams) (*faucet.Result, error) {
			res, err := s.bridge.Register(ctx, p.Name, p.Password, p.Referrer)
			if err != nil {
				return nil, toJRPC2Error(err)
			}
			return res, nil
		}),
	}
}

// --- Helpers ---

func (s *Server) setCORSHeaders(w http.ResponseWriter, r *http.Request) {
	if len(s.corsConfig.AllowedOrigins) > 0 {
		if s.corsConfig.AllowedOrigins[0] == "*" {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		} else {
			origin := r.Header.Get("Origin")
			for _, allowedOrigin := range s.corsConfig.AllowedOrigins {
				if origin == allowedOrigin {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					break
				}
			}
		}
	}
	if len(s.corsConfig.AllowedMethods) > 0 {
		w.Header().Set("Access-Control-Allow-Methods", strings.Join(s.corsConfig.AllowedMethods, ", "))
	}
	if len(s.corsConfig.AllowedHeaders) > 0 {
		w.Header().Set("Access-Control-Allow-Headers", strings.Join(s.corsConfig.AllowedHeaders, ", "))
	}
	if s.corsConfig.MaxAge > 0 {
		w.Header().Set("Access-Control-Max-Age", strconv.Itoa(s.corsConfig.MaxAge))
	}
}

// CORSFromEnv reads CORS_ALLOWED_ORIGINS, CORS_ALLOWED_METHODS,
// CORS_ALLOWED_HEADERS (comma separated) and CORS_MAX_AGE (seconds).
// It reports false when none is set.
func CORSFromEnv() (CORSConfig, bool) {
	var maxAge int
	if v, err := strconv.Atoi(os.Getenv("CORS_MAX_AGE")); err == nil {
		maxAge = v
	}
	cfg := CORSConfig{
		AllowedOrigins: splitAndTrim(os.Getenv("CORS_ALLOWED_ORIGINS")),
		AllowedMethods: splitAndTrim(os.Getenv("CORS_ALLOWED_METHODS")),
		AllowedHeaders: splitAndTrim(os.Getenv("CORS_ALLOWED_HEADERS")),
		MaxAge:         maxAge,
	}
	provided := len(cfg.AllowedOrigins) > 0 || len(cfg.AllowedMethods) > 0 || len(cfg.AllowedHeaders) > 0 || maxAge > 0
	if !provided {
		return CORSConfig{}, false
	}
	return cfg, true
}
