package authkit

import (
	"errors"

	"github.com/tyemirov/storekeep/pkg/sessiontoken"
	"go.uber.org/zap"
)

var (
	errNilCodec = errors.New("authkit.service.nil_codec")
	errNilUsers = errors.New("authkit.service.nil_users")
)

// Service wires the gate and the auth routes to their collaborators.
type Service struct {
	configuration ServerConfig
	codec         *sessiontoken.Codec
	policy        CookiePolicy
	users         UserDirectory
	limiter       *LoginLimiter
	logger        *zap.Logger
	metrics       MetricsRecorder
}

// Option customizes a Service.
type Option func(*Service)

// WithLogger sets the structured logger.
func WithLogger(logger *zap.Logger) Option {
	return func(service *Service) {
		if logger != nil {
			service.logger = logger
		}
	}
}

// WithMetrics sets the auth event recorder.
func WithMetrics(metrics MetricsRecorder) Option {
	return func(service *Service) {
		if metrics != nil {
			service.metrics = metrics
		}
	}
}

// WithLoginLimiter enables login rate limiting.
func WithLoginLimiter(limiter *LoginLimiter) Option {
	return func(service *Service) {
		service.limiter = limiter
	}
}

// NewService constructs the authentication service.
func NewService(configuration ServerConfig, codec *sessiontoken.Codec, users UserDirectory, options ...Option) (*Service, error) {
	if codec == nil {
		return nil, errNilCodec
	}
	if users == nil {
		return nil, errNilUsers
	}
	service := &Service{
		configuration: configuration,
		codec:         codec,
		policy:        NewCookiePolicy(configuration),
		users:         users,
		logger:        zap.NewNop(),
		metrics:       noopMetrics{},
	}
	for _, option := range options {
		option(service)
	}
	return service, nil
}

// CookiePolicy exposes the cookie attributes in use.
func (service *Service) CookiePolicy() CookiePolicy {
	return service.policy
}
