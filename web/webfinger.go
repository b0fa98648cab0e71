package web

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/plork/plork/activitypub"
)

type webfingerLink struct {
	Rel  string `json:"rel"`
	Type string `json:"type"`
	Href string `json:"href"`
}

type webfingerResponse struct {
	Subject string          `json:"subject"`
	Links   []webfingerLink `json:"links"`
}

// handleWebfinger resolves acct:user@domain resources to the actor document
// URL. Anything else is a 404.
func (s *Server) handleWebfinger(c *gin.Context) {
	resource := c.Query("resource")
	if !strings.HasPrefix(resource, "acct:") {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not Found"})
		return
	}

	sslDomain := s.conf.Conf.SslDomain
	username := strings.TrimPrefix(resource, "acct:")
	username = strings.TrimSuffix(username, fmt.Sprintf("@%s", sslDomain))

	acc, err := s.store.ReadAccByUsername(username)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not Found"})
		return
	}

	c.JSON(http.StatusOK, webfingerResponse{
		Subject: fmt.Sprintf("acct:%s@%s", acc.Username, sslDomain),
		Links: []webfingerLink{
			{
				Rel:  "self",
				Type: "application/activity+json",
				Href: activitypub.ActorURI(sslDomain, acc.Username),
			},
		},
	})
}
