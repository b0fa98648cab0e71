package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/plork/plork/activitypub"
)

// handleActor serves the actor document when the client asks for an
// ActivityPub representation, and a plain profile otherwise.
func (s *Server) handleActor(c *gin.Context) {
	username := c.Param("username")

	acc, err := s.store.ReadAccByUsername(username)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	if wantsActivityJSON(c) {
		c.Header("Content-Type", "application/activity+json; charset=utf-8")
		c.JSON(http.StatusOK, activitypub.FormatActor(acc, s.conf.Conf.SslDomain))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"username":  acc.Username,
		"createdAt": acc.CreatedAt,
		"actor":     activitypub.ActorURI(s.conf.Conf.SslDomain, acc.Username),
	})
}

func (s *Server) handleInboxPost(c *gin.Context) {
	username := c.Param("username")

	if s.conf.Conf.RequireSignedInbox && !s.inbox.VerifySignature(c.Request) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid HTTP signature"})
		return
	}

	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read body"})
		return
	}

	if err := s.inbox.Receive(username, body); err != nil {
		if errors.Is(err, activitypub.ErrActorNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleOutboxPost(c *gin.Context) {
	username := c.Param("username")

	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read body"})
		return
	}

	err = s.outbox.Publish(username, body)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	case errors.Is(err, activitypub.ErrActorNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
	case errors.Is(err, activitypub.ErrUnsupportedActivityType):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported activity type"})
	case errors.Is(err, activitypub.ErrInvalidActivity):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid activity"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// handleOutboxCollection serves the outbox ledger as an OrderedCollection in
// stored insertion order.
func (s *Server) handleOutboxCollection(c *gin.Context) {
	username := c.Param("username")

	acc, err := s.store.ReadAccByUsername(username)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	entries, err := s.store.ReadOutboxByAccountId(acc.Id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read outbox"})
		return
	}

	items := make([]json.RawMessage, 0, len(entries))
	for _, entry := range entries {
		items = append(items, json.RawMessage(entry.RawJSON))
	}

	c.Header("Content-Type", "application/activity+json; charset=utf-8")
	selfURL := activitypub.OutboxURI(s.conf.Conf.SslDomain, username)
	c.JSON(http.StatusOK, activitypub.FormatOrderedCollection(selfURL, items))
}

func (s *Server) handleFollowers(c *gin.Context) {
	username := c.Param("username")

	acc, err := s.store.ReadAccByUsername(username)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	follows, err := s.store.ReadFollowersByAccountId(acc.Id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read followers"})
		return
	}

	items := make([]string, 0, len(follows))
	for _, follow := range follows {
		follower, err := s.store.ReadAccById(follow.AccountId)
		if err != nil {
			continue
		}
		items = append(items, activitypub.ActorURI(s.conf.Conf.SslDomain, follower.Username))
	}

	c.Header("Content-Type", "application/activity+json; charset=utf-8")
	selfURL := activitypub.FollowersURI(s.conf.Conf.SslDomain, username)
	c.JSON(http.StatusOK, activitypub.FormatCollection(selfURL, items))
}

func (s *Server) handleFollowing(c *gin.Context) {
	username := c.Param("username")

	acc, err := s.store.ReadAccByUsername(username)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	follows, err := s.store.ReadFollowingByAccountId(acc.Id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read following"})
		return
	}

	items := make([]string, 0, len(follows))
	for _, follow := range follows {
		followed, err := s.store.ReadAccById(follow.TargetAccountId)
		if err != nil {
			continue
		}
		items = append(items, activitypub.ActorURI(s.conf.Conf.SslDomain, followed.Username))
	}

	c.Header("Content-Type", "application/activity+json; charset=utf-8")
	selfURL := activitypub.FollowingURI(s.conf.Conf.SslDomain, username)
	c.JSON(http.StatusOK, activitypub.FormatCollection(selfURL, items))
}

// handleNoteObject serves a single note as an ActivityPub object so remote
// servers can dereference the URIs that appear in activities.
func (s *Server) handleNoteObject(c *gin.Context) {
	noteId, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Invalid note ID"})
		return
	}

	note, err := s.store.ReadNoteId(noteId)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Note not found"})
		return
	}

	baseURL := fmt.Sprintf("https://%s", s.conf.Conf.SslDomain)
	c.Header("Content-Type", "application/activity+json; charset=utf-8")
	c.JSON(http.StatusOK, gin.H{
		"@context":     activitypub.ActivityStreamsContext,
		"id":           fmt.Sprintf("%s/notes/%s", baseURL, note.Id),
		"type":         "Note",
		"attributedTo": activitypub.ActorURI(s.conf.Conf.SslDomain, note.CreatedBy),
		"content":      note.Message,
		"published":    note.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	})
}
