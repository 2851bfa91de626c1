package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/0xmhha/show-indexer/internal/constants"
	"github.com/0xmhha/show-indexer/pkg/eventbus"
	"github.com/0xmhha/show-indexer/pkg/storage"
	"github.com/0xmhha/show-indexer/pkg/u256"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ShowRequest is the body of POST /show
type ShowRequest struct {
	ID           *u256.Uint256 `json:"id"`
	Name         string        `json:"name"`
	Description  string        `json:"description"`
	Location     string        `json:"location"`
	StartTime    u256.Uint256  `json:"start_time"`
	EndTime      u256.Uint256  `json:"end_time"`
	TotalTickets u256.Uint256  `json:"total_tickets"`
	TicketPrice  u256.Uint256  `json:"ticket_price"`
	TicketsSold  u256.Uint256  `json:"tickets_sold"`
	MetadataURI  string        `json:"metadata_uri"`
	Status       string        `json:"status"`
	Organizer    string        `json:"organizer"`
}

// ToState validates the request and converts it to a show state
func (req ShowRequest) ToState() (storage.ShowState, error) {
	if req.ID == nil {
		return storage.ShowState{}, errors.New("id is required")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return storage.ShowState{}, errors.New("name is required")
	}
	organizer := strings.TrimSpace(req.Organizer)
	if organizer == "" {
		return storage.ShowState{}, errors.New("organizer is required")
	}
	if req.EndTime.Cmp(req.StartTime) < 0 {
		return storage.ShowState{}, errors.New("end_time must not be before start_time")
	}
	if req.TicketsSold.Cmp(req.TotalTickets) > 0 {
		return storage.ShowState{}, errors.New("tickets_sold must not exceed total_tickets")
	}

	status := storage.ShowStatusUpcoming
	if req.Status != "" {
		parsed, err := storage.ParseShowStatus(req.Status)
		if err != nil {
			return storage.ShowState{}, err
		}
		status = parsed
	}

	return storage.ShowState{
		ShowID:       *req.ID,
		Name:         name,
		Description:  req.Description,
		Location:     req.Location,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		TotalTickets: req.TotalTickets,
		TicketPrice:  req.TicketPrice,
		TicketsSold:  req.TicketsSold,
		MetadataURI:  req.MetadataURI,
		Status:       status,
		Organizer:    organizer,
	}, nil
}

// PatchRequest is the body of PUT /show/{id}. Absent fields are left unchanged.
type PatchRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Location    *string `json:"location"`
	MetadataURI *string `json:"metadata_uri"`
	Status      *string `json:"status"`
}

// ToPatch validates the request and converts it to a storage patch
func (req PatchRequest) ToPatch() (storage.ShowPatch, error) {
	patch := storage.ShowPatch{
		Description: req.Description,
		Location:    req.Location,
		MetadataURI: req.MetadataURI,
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return storage.ShowPatch{}, errors.New("name cannot be empty")
		}
		patch.Name = &name
	}
	if req.Status != nil {
		status, err := storage.ParseShowStatus(*req.Status)
		if err != nil {
			return storage.ShowPatch{}, err
		}
		patch.Status = &status
	}
	if patch.IsEmpty() {
		return storage.ShowPatch{}, errors.New("no fields to update")
	}
	return patch, nil
}

// decodeJSON reads exactly one JSON object with no unknown fields
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	body := http.MaxBytesReader(w, r.Body, constants.DefaultMaxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("body must contain a single JSON object")
	}
	return nil
}

// parsePage reads limit and offset; absent values are 0 and get defaults later
func parsePage(q url.Values) (int, int, error) {
	var limit, offset int
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid limit %q", v)
		}
		limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid offset %q", v)
		}
		offset = n
	}
	limit, offset = storage.NormalizePage(limit, offset)
	return limit, offset, nil
}

func (s *Server) showID(w http.ResponseWriter, r *http.Request) (u256.Uint256, bool) {
	id, err := u256.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, CodeInvalidID, "", err)
		return u256.Uint256{}, false
	}
	return id, true
}

func (s *Server) writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		s.writeError(w, r, CodeNotFound, "", err)
	case errors.Is(err, storage.ErrInvalidStatus):
		s.writeError(w, r, CodeValidation, err.Error(), err)
	default:
		s.writeError(w, r, CodeDatabase, "", err)
	}
}

// readShow serves a show from the cache, falling back to the store and
// refilling the cache on a miss
func (s *Server) readShow(ctx context.Context, id u256.Uint256) (*storage.ShowSnapshot, error) {
	if s.cache != nil {
		show, hit, err := s.cache.Get(ctx, id)
		if err != nil {
			s.logger.Warn("cache read failed", zap.String("show_id", id.String()), zap.Error(err))
		} else if hit {
			return show, nil
		}
	}

	show, err := s.store.GetShowByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, show); err != nil {
			s.logger.Warn("cache fill failed", zap.String("show_id", id.String()), zap.Error(err))
		}
	}
	return show, nil
}

// afterWrite invalidates the cache entry and announces the write
func (s *Server) afterWrite(r *http.Request, id u256.Uint256, show *storage.ShowSnapshot, status string) {
	ctx := context.WithoutCancel(r.Context())

	if s.cache != nil {
		if err := s.cache.Delete(ctx, id); err != nil {
			s.logger.Warn("cache invalidation failed", zap.String("show_id", id.String()), zap.Error(err))
		}
	}

	if s.publisher == nil || show == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(ctx, constants.DefaultPublishTimeout)
	defer cancel()
	ev := eventbus.ShowUpserted{
		ShowID:   id,
		Status:   status,
		IsActive: show.IsActive,
		At:       time.Now().UTC(),
	}
	if err := s.publisher.Publish(pubCtx, ev); err != nil {
		s.logger.Warn("failed to publish show update", zap.String("show_id", id.String()), zap.Error(err))
	}
}

// handleGetShow handles GET /show/{id}
func (s *Server) handleGetShow(w http.ResponseWriter, r *http.Request) {
	id, ok := s.showID(w, r)
	if !ok {
		return
	}

	show, err := s.readShow(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeOK(w, show)
}

// handleListShows handles GET /shows
func (s *Server) handleListShows(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := parsePage(r.URL.Query())
	if err != nil {
		s.writeError(w, r, CodeInvalidQuery, "", err)
		return
	}

	shows, err := s.store.ListShows(r.Context(), limit, offset)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	if shows == nil {
		shows = []storage.ShowSnapshot{}
	}
	writeOK(w, ListResponse{Items: shows, Limit: limit, Offset: offset})
}

// handleCreateShow handles POST /show. An existing show with the same id is replaced.
func (s *Server) handleCreateShow(w http.ResponseWriter, r *http.Request) {
	var req ShowRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, CodeInvalidJSON, "", err)
		return
	}
	state, err := req.ToState()
	if err != nil {
		s.writeError(w, r, CodeValidation, err.Error(), err)
		return
	}

	show, err := s.store.PutShow(r.Context(), state)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	s.afterWrite(r, state.ShowID, show, string(state.Status))
	writeOK(w, show)
}

// handleUpdateShow handles PUT /show/{id}
func (s *Server) handleUpdateShow(w http.ResponseWriter, r *http.Request) {
	id, ok := s.showID(w, r)
	if !ok {
		return
	}
	var req PatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, CodeInvalidJSON, "", err)
		return
	}
	patch, err := req.ToPatch()
	if err != nil {
		s.writeError(w, r, CodeValidation, err.Error(), err)
		return
	}

	show, err := s.store.UpdateShow(r.Context(), id, patch)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	var status string
	if patch.Status != nil {
		status = string(*patch.Status)
	}
	s.afterWrite(r, id, show, status)
	writeOK(w, show)
}

// handleDeleteShow handles DELETE /show/{id}
func (s *Server) handleDeleteShow(w http.ResponseWriter, r *http.Request) {
	id, ok := s.showID(w, r)
	if !ok {
		return
	}

	if err := s.store.DeleteShow(r.Context(), id); err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	s.afterWrite(r, id, nil, "")
	writeOK(w, nil)
}
