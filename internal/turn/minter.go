package turn

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"slices"
	"strconv"
	"time"

	"github.com/mossy-p/signalhub/internal/models"
)

// This package vends TURN REST credentials
// (draft-uberti-behave-turn-rest, as implemented by coturn's use-auth-secret):
//
//	username   = <unix_expiry_timestamp>
//	credential = base64(hmac_sha1(shared_secret, username))
//
// with unix_expiry_timestamp = now_unix + expiry_seconds.

// DefaultExpiry applies when a server leaves expiry unset or zero
const DefaultExpiry int64 = 86400

// Server is one configured TURN relay
type Server struct {
	Secret string   `mapstructure:"secret"`
	Expiry int64    `mapstructure:"expiry"`
	URLs   []string `mapstructure:"urls"`
	URL    string   `mapstructure:"url"`
}

func (s Server) urls() []string {
	if len(s.URLs) > 0 {
		return s.URLs
	}
	if s.URL != "" {
		return []string{s.URL}
	}
	return []string{}
}

// Config is everything credential issuance depends on besides the clock
type Config struct {
	Servers       []Server
	SharedKeyAuth bool
	// Origins, when non-empty, is the allow-list of client origins that
	// receive credentials at all.
	Origins []string
}

// Mint returns one credential per server, in configured order. It returns an
// empty (non-nil) list when the origin is not allowed.
//
// Without shared-key auth the credential is the raw secret and the username
// is whatever the shared-key branch last computed. Shared-key auth is a
// process-wide switch, so in that mode the username is always empty.
func Mint(cfg Config, origin string, now time.Time) []models.TurnCredential {
	creds := make([]models.TurnCredential, 0, len(cfg.Servers))
	if len(cfg.Origins) > 0 && !slices.Contains(cfg.Origins, origin) {
		return creds
	}

	var username string
	for _, server := range cfg.Servers {
		if cfg.SharedKeyAuth {
			expiry := server.Expiry
			if expiry == 0 {
				expiry = DefaultExpiry
			}
			username = strconv.FormatInt(now.Unix()+expiry, 10)
			creds = append(creds, models.TurnCredential{
				Username:   username,
				Credential: signUsername([]byte(server.Secret), username),
				URLs:       server.urls(),
			})
			continue
		}
		creds = append(creds, models.TurnCredential{
			Username:   username,
			Credential: server.Secret,
			URLs:       server.urls(),
		})
	}
	return creds
}

// Minter binds a Config to a clock
type Minter struct {
	Config Config
	Now    func() time.Time
}

func NewMinter(cfg Config) *Minter {
	return &Minter{Config: cfg, Now: time.Now}
}

func (m *Minter) Mint(origin string) []models.TurnCredential {
	now := time.Now
	if m.Now != nil {
		now = m.Now
	}
	return Mint(m.Config, origin, now().UTC())
}

func signUsername(sharedSecret []byte, username string) string {
	mac := hmac.New(sha1.New, sharedSecret)
	_, _ = mac.Write([]byte(username))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
