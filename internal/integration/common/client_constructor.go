package common

import (
	"github.com/futig/kbchat-backend/internal/config"
	pkgHTTP "github.com/futig/kbchat-backend/pkg/http"
	"go.uber.org/zap"
)

// HTTPOptions converts the env-level client settings into connector options.
func HTTPOptions(cfg config.HTTPClientConfig, extra ...pkgHTTP.HttpOpts) []pkgHTTP.HttpOpts {
	opts := []pkgHTTP.HttpOpts{
		pkgHTTP.WithRequestTimeout(cfg.RequestTimeout),
		pkgHTTP.WithConnClientTimeout(cfg.ConnTimeout),
		pkgHTTP.WithClientKeepAlive(cfg.KeepAlive),
		pkgHTTP.WithIdleConnTimeout(cfg.IdleConnTimeout),
		pkgHTTP.WithResponseHeaderTimeout(cfg.ResponseHeaderTimeout),
		pkgHTTP.WithRequestLogging(),
		pkgHTTP.WithTracing(),
	}
	return append(opts, extra...)
}

func NewBaseConnector(cfg config.HTTPClientConfig, baseURL string, logger *zap.Logger, extra ...pkgHTTP.HttpOpts) *pkgHTTP.Connector {
	connCfg := &pkgHTTP.ConnectorConfig{
		Logger:  logger,
		BaseURL: baseURL,
	}

	return pkgHTTP.NewConnector(connCfg, HTTPOptions(cfg, extra...)...)
}
