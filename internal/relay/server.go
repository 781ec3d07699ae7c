package relay

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cyphertext/internal/domain"
	"cyphertext/internal/metrics"
)

// RouteOptions toggles the optional parts of the relay API.
type RouteOptions struct {
	Metrics     bool
	CORSOrigins []string
}

// Server exposes a domain.Relay backend over HTTP. It only ever handles
// public keys and ciphertext.
type Server struct {
	backend  domain.Relay
	validate *validator.Validate
	logger   log.Logger
	upgrader websocket.Upgrader
}

// NewServer returns a Server over backend.
func NewServer(backend domain.Relay, logger log.Logger) *Server {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Server{
		backend:  backend,
		validate: validator.New(),
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// ConfigRoutes registers the relay API on router.
func (s *Server) ConfigRoutes(router *gin.Engine, opts RouteOptions) *gin.Engine {
	if len(opts.CORSOrigins) > 0 {
		cfg := cors.DefaultConfig()
		cfg.AllowOrigins = opts.CORSOrigins
		cfg.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions}
		router.Use(cors.New(cfg))
	}
	if opts.Metrics {
		metrics.InitMetrics()
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	router.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	router.GET("/subscribe", s.Subscribe)

	api := router.Group("/", metrics.MetricsMiddleware())
	{
		api.PUT("directory/:participant", s.PublishKey)
		api.GET("directory/:participant", s.GetKey)
		api.POST("conversations/:conversation/envelopes", s.AppendEnvelope)
		api.GET("conversations/:conversation/envelopes", s.ListEnvelopes)
	}
	return router
}

type publishKeyRequest struct {
	PublicKey string `json:"public_key"`
}

// PublishKey stores or overwrites a participant's public key.
func (s *Server) PublishKey(c *gin.Context) {
	var input publishKeyRequest
	if err := c.ShouldBindBodyWith(&input, binding.JSON); err != nil {
		ApiErrorf(c, http.StatusBadRequest, "invalid format")
		return
	}
	rec := domain.PublicKeyRecord{
		Participant: domain.ParticipantID(c.Param("participant")),
		PublicKey:   input.PublicKey,
	}
	if err := s.validate.Struct(rec); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			ApiErrorf(c, http.StatusBadRequest, "%s", ValidatorErrorToUser(verrs))
			return
		}
		ApiErrorf(c, http.StatusBadRequest, "invalid public key record")
		return
	}
	if err := s.backend.Publish(c.Request.Context(), rec.Participant, rec.PublicKey); err != nil {
		level.Error(s.logger).Log("msg", "publish key", "participant", rec.Participant, "err", err)
		ApiErrorf(c, http.StatusInternalServerError, "failed to publish key")
		return
	}
	c.Status(http.StatusNoContent)
}

// GetKey returns a participant's published public key.
func (s *Server) GetKey(c *gin.Context) {
	participant := domain.ParticipantID(c.Param("participant"))
	key, ok, err := s.backend.GetPublicKey(c.Request.Context(), participant)
	if err != nil {
		level.Error(s.logger).Log("msg", "get key", "participant", participant, "err", err)
		ApiErrorf(c, http.StatusInternalServerError, "failed to read directory")
		return
	}
	if !ok {
		ApiErrorf(c, http.StatusNotFound, "no key published for %s", participant)
		return
	}
	c.JSON(http.StatusOK, domain.PublicKeyRecord{Participant: participant, PublicKey: key})
}

// AppendEnvelope adds an envelope to a conversation log.
func (s *Server) AppendEnvelope(c *gin.Context) {
	var env domain.Envelope
	if err := c.ShouldBindBodyWith(&env, binding.JSON); err != nil {
		ApiErrorf(c, http.StatusBadRequest, "invalid format")
		return
	}
	env.ConversationID = domain.ConversationID(c.Param("conversation"))
	if env.CreatedAt == 0 {
		env.CreatedAt = time.Now().UnixMilli()
	}
	if err := s.validate.Struct(env); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			ApiErrorf(c, http.StatusBadRequest, "%s", ValidatorErrorToUser(verrs))
			return
		}
		ApiErrorf(c, http.StatusBadRequest, "invalid envelope")
		return
	}
	if err := s.backend.Append(c.Request.Context(), env.ConversationID, env); err != nil {
		level.Error(s.logger).Log("msg", "append envelope", "conversation", env.ConversationID, "envelope", env.ID, "err", err)
		ApiErrorf(c, http.StatusInternalServerError, "failed to append envelope")
		return
	}
	metrics.EnvelopesAppendedTotal.Inc()
	c.JSON(http.StatusCreated, env)
}

// ListEnvelopes returns a conversation log ordered by creation time.
func (s *Server) ListEnvelopes(c *gin.Context) {
	conv := domain.ConversationID(c.Param("conversation"))
	envs, err := s.backend.History(c.Request.Context(), conv)
	if err != nil {
		level.Error(s.logger).Log("msg", "list envelopes", "conversation", conv, "err", err)
		ApiErrorf(c, http.StatusInternalServerError, "failed to read history")
		return
	}
	if envs == nil {
		envs = []domain.Envelope{}
	}
	c.JSON(http.StatusOK, envs)
}

// Subscribe upgrades to a websocket and pushes every appended envelope as a
// CBOR frame until the client disconnects.
func (s *Server) Subscribe(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		level.Warn(s.logger).Log("msg", "websocket upgrade", "err", err)
		return
	}
	defer conn.Close()

	metrics.ActiveSubscribers.Inc()
	defer metrics.ActiveSubscribers.Dec()

	var writeMu sync.Mutex
	unsubscribe, err := s.backend.Subscribe(c.Request.Context(), func(env domain.Envelope) {
		b, err := encodeFrame(env)
		if err != nil {
			level.Error(s.logger).Log("msg", "encode frame", "envelope", env.ID, "err", err)
			return
		}
		writeMu.Lock()
		defer writeMu.Unlock()
		_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteMessage(websocket.BinaryMessage, b); err != nil {
			level.Debug(s.logger).Log("msg", "push failed", "envelope", env.ID, "err", err)
		}
	})
	if err != nil {
		level.Error(s.logger).Log("msg", "subscribe backend", "err", err)
		return
	}
	defer unsubscribe()

	// Clients never send data frames; reading only detects disconnects.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
