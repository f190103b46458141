// Package gate is an optional password gate in front of the API.
// Passwords are configured as sha256 hex digests; a successful login
// mints a bearer token that later requests present.
package gate

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
	"sync"

	"github.com/cdfmlr/crud/log"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

var logger = log.ZoneLogger("tunedeck/gate")

// Hash returns the stored form of a password: lowercase sha256 hex.
func Hash(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// Gate holds the configured password digests and the tokens minted in
// this process. Tokens do not survive a restart.
type Gate struct {
	Enabled bool

	hashes []string

	mu     sync.Mutex
	tokens map[string]bool
}

func NewGate(enabled bool, passwordHashes []string) *Gate {
	hashes := make([]string, 0, len(passwordHashes))
	for _, h := range passwordHashes {
		hashes = append(hashes, strings.ToLower(strings.TrimSpace(h)))
	}
	return &Gate{
		Enabled: enabled,
		hashes:  hashes,
		tokens:  make(map[string]bool),
	}
}

// check compares sha256(password) against every configured digest.
// Constant-time per comparison so the gate leaks nothing about which
// digest matched.
func (g *Gate) check(password string) bool {
	digest := []byte(Hash(password))
	ok := false
	for _, h := range g.hashes {
		if subtle.ConstantTimeCompare(digest, []byte(h)) == 1 {
			ok = true
		}
	}
	return ok
}

func (g *Gate) mintToken() string {
	token := uuid.NewString()
	g.mu.Lock()
	g.tokens[token] = true
	g.mu.Unlock()
	return token
}

func (g *Gate) validToken(token string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.tokens[token]
}

// RegisterRoutes wires POST /gate/login. Call before Middleware is
// attached so login itself stays reachable.
func (g *Gate) RegisterRoutes(r gin.IRouter) {
	r.POST("/gate/login", g.PostLogin)
}

type PostLoginRequest struct {
	Password string `json:"password"`
}

// PostLogin handles: POST /gate/login
//
// Body: {"password": "..."}
//
// Response: {"token": "..."} to be sent back as
// "Authorization: Bearer <token>".
func (g *Gate) PostLogin(c *gin.Context) {
	req := new(PostLoginRequest)
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}

	if !g.Enabled {
		c.JSON(200, gin.H{"token": "", "gate": "disabled"})
		return
	}

	if !g.check(req.Password) {
		logger.Warn("PostLogin: wrong password")
		c.JSON(401, gin.H{"error": "wrong password"})
		return
	}

	c.JSON(200, gin.H{"token": g.mintToken()})
}

// Middleware rejects requests without a valid token when the gate is
// enabled. Attach it to the route groups that need protecting.
func (g *Gate) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !g.Enabled {
			c.Next()
			return
		}

		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" || !g.validToken(token) {
			c.AbortWithStatusJSON(401, gin.H{"error": "gate: login required"})
			return
		}
		c.Next()
	}
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, prefix))
}
