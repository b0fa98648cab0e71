package web

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/feeds"

	"github.com/plork/plork/domain"
	"github.com/plork/plork/util"
)

// GetRSS renders the notes of one user, or of the whole instance when
// username is empty, as an RSS feed.
func (s *Server) GetRSS(username string) (string, error) {
	var notes []domain.Note
	var err error
	var title string
	var createdBy string

	link := fmt.Sprintf("https://%s/feed", s.conf.Conf.SslDomain)

	if username != "" {
		notes, err = s.store.ReadNotesByUsername(username)
		if err != nil || len(notes) == 0 {
			webLogger.Warnf("Could not get notes from %s: %v", username, err)
			return "", errors.New("error retrieving notes by username")
		}
		title = fmt.Sprintf("Plork Notes - %s", username)
		createdBy = notes[0].CreatedBy
		link = fmt.Sprintf("%s?username=%s", link, username)
	} else {
		notes, err = s.store.ReadAllNotes()
		if err != nil || len(notes) == 0 {
			webLogger.Warnf("Could not get notes: %v", err)
			return "", errors.New("error retrieving notes")
		}
		title = "All Plork Notes"
		createdBy = "everyone"
	}

	feed := &feeds.Feed{
		Title:       title,
		Link:        &feeds.Link{Href: link},
		Description: "plork notes feed",
		Author:      &feeds.Author{Name: createdBy, Email: fmt.Sprintf("%s@plork", createdBy)},
		Created:     time.Now(),
	}

	for _, note := range notes {
		feed.Items = append(feed.Items, s.feedItem(&note))
	}

	return feed.ToRss()
}

// GetRSSItem renders a single note as a one-item RSS feed.
func (s *Server) GetRSSItem(id uuid.UUID) (string, error) {
	note, err := s.store.ReadNoteId(id)
	if err != nil {
		webLogger.Warnf("Could not get note %s: %v", id, err)
		return "", errors.New("error retrieving note by id")
	}

	url := fmt.Sprintf("https://%s/feed/%s", s.conf.Conf.SslDomain, note.Id)

	feed := &feeds.Feed{
		Title:       "Single Plork Note",
		Link:        &feeds.Link{Href: url},
		Description: "plork notes feed",
		Author:      &feeds.Author{Name: note.CreatedBy, Email: fmt.Sprintf("%s@plork", note.CreatedBy)},
		Created:     time.Now(),
		Items:       []*feeds.Item{s.feedItem(note)},
	}

	return feed.ToRss()
}

func (s *Server) feedItem(note *domain.Note) *feeds.Item {
	return &feeds.Item{
		Id:      note.Id.String(),
		Title:   note.CreatedAt.Format(util.DateTimeFormat()),
		Link:    &feeds.Link{Href: fmt.Sprintf("https://%s/feed/%s", s.conf.Conf.SslDomain, note.Id)},
		Content: note.Message,
		Author:  &feeds.Author{Name: note.CreatedBy, Email: fmt.Sprintf("%s@plork", note.CreatedBy)},
		Created: note.CreatedAt,
	}
}
