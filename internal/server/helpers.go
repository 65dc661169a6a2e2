package server

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"accountsvc/internal/account"
)

const (
	maxBodyBytes = 1 << 20

	codeInvalidCode = "INVALID_CODE"
	codeRateLimited = "RATE_LIMITED"
)

type errorResponse struct {
	Message  string `json:"message"`
	Code     string `json:"code"`
	Cooldown int64  `json:"cooldown,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Message: message, Code: code})
}

func writeRateLimited(w http.ResponseWriter, message string, retryIn time.Duration) {
	secs := int64(retryIn.Round(time.Second) / time.Second)
	if secs < 1 {
		secs = 1
	}
	w.Header().Set("Retry-After", strconv.FormatInt(secs, 10))
	writeJSON(w, http.StatusTooManyRequests, errorResponse{Message: message, Code: codeRateLimited, Cooldown: secs})
}

// writeServiceError maps an account error onto a status and client-safe
// message. Causes of internal errors are logged, never returned.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, account.ErrInvalidCode) {
		writeError(w, http.StatusBadRequest, codeInvalidCode, account.MsgInvalidCode)
		return
	}

	var e *account.Error
	if !errors.As(err, &e) {
		e = &account.Error{Kind: account.KindInternal, Message: account.MsgInternal, Err: err}
	}

	status := statusFor(e.Kind)
	if status >= http.StatusInternalServerError {
		s.requestLogger(r).Error("request failed", zap.String("kind", string(e.Kind)), zap.Error(e))
	}
	writeError(w, status, string(e.Kind), e.Message)
}

func statusFor(kind account.Kind) int {
	switch kind {
	case account.KindValidation:
		return http.StatusBadRequest
	case account.KindConflict:
		return http.StatusConflict
	case account.KindNotFound:
		return http.StatusNotFound
	case account.KindAuthentication:
		return http.StatusUnauthorized
	case account.KindDelivery:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

func clientIP(r *http.Request, trusted []net.IPNet) string {
	remoteHost, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil || remoteHost == "" {
		remoteHost = r.RemoteAddr
	}

	// Forwarded headers count only when the direct peer is a trusted proxy.
	if remoteHost != "" && isTrustedProxy(remoteHost, trusted) {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			parts := strings.Split(xff, ",")
			if ip := strings.TrimSpace(parts[0]); ip != "" {
				return ip
			}
		}
		if xrip := r.Header.Get("X-Real-IP"); xrip != "" {
			return strings.TrimSpace(xrip)
		}
	}

	return remoteHost
}

func parseProxyCIDRs(values []string) []net.IPNet {
	var nets []net.IPNet
	for _, v := range values {
		val := strings.TrimSpace(v)
		if val == "" {
			continue
		}
		if ip := net.ParseIP(val); ip != nil {
			mask := net.CIDRMask(128, 128)
			if ip.To4() != nil {
				mask = net.CIDRMask(32, 32)
			}
			nets = append(nets, net.IPNet{IP: ip, Mask: mask})
			continue
		}
		if _, cidr, err := net.ParseCIDR(val); err == nil {
			nets = append(nets, *cidr)
		}
	}
	return nets
}

func isTrustedProxy(ipStr string, proxies []net.IPNet) bool {
	if len(proxies) == 0 {
		return false
	}
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return false
	}
	for _, n := range proxies {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}
