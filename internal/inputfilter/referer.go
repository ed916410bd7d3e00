package inputfilter

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
)

var ErrRefererCheckFailed = errors.New("Referer check for frontend session failed")

// RefererCheck guards POSTs into the customer account against cross-site
// submissions by comparing the Referer host with the shop hosts
type RefererCheck struct {
	hosts []string
}

// NewRefererCheck accepts the shop host and the secure host. Empty hosts are
// ignored.
func NewRefererCheck(hosts ...string) *RefererCheck {
	c := &RefererCheck{}
	for _, h := range hosts {
		if h != "" {
			c.hosts = append(c.hosts, h)
		}
	}
	return c
}

// Applies reports whether a request to controller must be checked
func (c *RefererCheck) Applies(method, controller string) bool {
	return method == http.MethodPost && controller == "account"
}

// Check validates the referer value. A missing referer or one that does not
// start with http is accepted.
func (c *RefererCheck) Check(referer string) error {
	if referer == "" || !strings.HasPrefix(referer, "http") {
		return nil
	}

	u, err := url.Parse(referer)
	if err != nil {
		return ErrRefererCheckFailed
	}

	host := u.Hostname()
	hostWithPort := host + ":" + u.Port()
	for _, valid := range c.hosts {
		if valid == host || valid == hostWithPort {
			return nil
		}
	}

	return ErrRefererCheckFailed
}
