package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"bump_server/models"

	"go.uber.org/zap"
)

// GeoService resolves a caller IP to a coarse city/region via an external
// ip-api style endpoint. Lookup never fails the request: any error degrades
// to an unknown location that still participates in matching. The network
// block is derived locally from the IP and survives a lookup failure.
type GeoService struct {
	HTTP     *http.Client
	Endpoint string
	Logger   *zap.Logger
}

func NewGeoService(endpoint string, timeout time.Duration, logger *zap.Logger) *GeoService {
	return &GeoService{
		HTTP:     &http.Client{Timeout: timeout},
		Endpoint: strings.TrimRight(endpoint, "/"),
		Logger:   logger,
	}
}

type geoAPIResponse struct {
	Status string `json:"status"`
	City   string `json:"city"`
	Region string `json:"regionName"`
	Proxy  bool   `json:"proxy"`
}

func (gs *GeoService) Lookup(ctx context.Context, ip string) models.Location {
	block := networkBlockFromIP(ip)
	if ip == "" {
		return models.Location{Unknown: true}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/%s?fields=status,city,regionName,proxy", gs.Endpoint, ip), nil)
	if err != nil {
		return models.Location{NetworkBlock: block, Unknown: true}
	}

	resp, err := gs.HTTP.Do(req)
	if err != nil {
		gs.Logger.Warn("geo lookup failed", zap.Error(err))
		return models.Location{NetworkBlock: block, Unknown: true}
	}
	defer resp.Body.Close()

	var body geoAPIResponse
	if resp.StatusCode != http.StatusOK || json.NewDecoder(resp.Body).Decode(&body) != nil || body.Status != "success" {
		gs.Logger.Warn("geo lookup unusable response", zap.Int("status", resp.StatusCode))
		return models.Location{NetworkBlock: block, Unknown: true}
	}

	return models.Location{
		City:         body.City,
		Region:       body.Region,
		NetworkBlock: block,
		IsVPN:        body.Proxy,
		Confidence:   1,
	}
}

// networkBlockFromIP returns the /24 for IPv4 (first three octets) or the
// /48-ish prefix for IPv6, empty when the IP does not parse.
func networkBlockFromIP(ip string) string {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return ""
	}
	if v4 := parsed.To4(); v4 != nil {
		return fmt.Sprintf("%d.%d.%d", v4[0], v4[1], v4[2])
	}
	parts := strings.Split(parsed.String(), ":")
	if len(parts) < 3 {
		return ""
	}
	return strings.Join(parts[:3], ":")
}
