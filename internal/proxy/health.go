package proxy

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
)

// ErrDegraded reports that the proxy answered but at least one dependency is not up.
var ErrDegraded = errors.New("proxy reports degraded services")

const statusUp = "up"

// ServiceStatus is one dependency reported by the proxy health endpoint.
type ServiceStatus struct {
	Name   string
	Status string
}

// Up reports whether the service is healthy.
func (s ServiceStatus) Up() bool {
	return strings.EqualFold(s.Status, statusUp)
}

// Health is the parsed health response.
type Health struct {
	Services []ServiceStatus
}

// Down lists the services that are not up.
func (h Health) Down() []ServiceStatus {
	var down []ServiceStatus
	for _, s := range h.Services {
		if !s.Up() {
			down = append(down, s)
		}
	}
	return down
}

// Health queries GET /health. When any service is not up it returns the parsed
// health together with an error wrapping ErrDegraded.
func (c *Client) Health(ctx context.Context) (Health, error) {
	body, err := c.do(ctx, http.MethodGet, "/health")
	if err != nil {
		return Health{}, fmt.Errorf("health check: %w", err)
	}
	health, err := ParseHealth(body)
	if err != nil {
		return Health{}, fmt.Errorf("health check: %w", err)
	}
	if down := health.Down(); len(down) > 0 {
		parts := make([]string, len(down))
		for i, s := range down {
			parts[i] = s.Name + "=" + s.Status
		}
		return health, fmt.Errorf("%w: %s", ErrDegraded, strings.Join(parts, ", "))
	}
	return health, nil
}

// ParseHealth reads {"services": {name: {"status": ...}}}. Without a services
// object, top-level entries that carry a status are used instead.
func ParseHealth(body []byte) (Health, error) {
	if !gjson.ValidBytes(body) {
		return Health{}, errors.New("invalid health response JSON")
	}

	var h Health
	services := gjson.GetBytes(body, "services")
	if services.Exists() && services.IsObject() {
		services.ForEach(func(name, value gjson.Result) bool {
			status := value.String()
			if value.IsObject() {
				status = value.Get("status").String()
			}
			h.Services = append(h.Services, ServiceStatus{Name: name.String(), Status: status})
			return true
		})
	} else {
		gjson.ParseBytes(body).ForEach(func(name, value gjson.Result) bool {
			if value.IsObject() && value.Get("status").Exists() {
				h.Services = append(h.Services, ServiceStatus{Name: name.String(), Status: value.Get("status").String()})
			}
			return true
		})
	}

	sort.Slice(h.Services, func(i, j int) bool { return h.Services[i].Name < h.Services[j].Name })
	return h, nil
}
