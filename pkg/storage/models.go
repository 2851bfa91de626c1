package storage

import (
	"fmt"
	"strings"
	"time"

	"github.com/0xmhha/show-indexer/internal/constants"
	"github.com/0xmhha/show-indexer/pkg/u256"
)

// ShowStatus mirrors the show_status enum
type ShowStatus string

const (
	ShowStatusUpcoming  ShowStatus = "UPCOMING"
	ShowStatusActive    ShowStatus = "ACTIVE"
	ShowStatusEnded     ShowStatus = "ENDED"
	ShowStatusCancelled ShowStatus = "CANCELLED"
)

// StatusFromCode maps the on-chain status code. Unknown codes map to Upcoming.
func StatusFromCode(code uint8) ShowStatus {
	switch code {
	case 0:
		return ShowStatusUpcoming
	case 1:
		return ShowStatusActive
	case 2:
		return ShowStatusEnded
	case 3:
		return ShowStatusCancelled
	default:
		return ShowStatusUpcoming
	}
}

// ParseShowStatus parses a status name, case-insensitively
func ParseShowStatus(s string) (ShowStatus, error) {
	switch status := ShowStatus(strings.ToUpper(strings.TrimSpace(s))); status {
	case ShowStatusUpcoming, ShowStatusActive, ShowStatusEnded, ShowStatusCancelled:
		return status, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
}

// ShowBasic is a row of show_created_events
type ShowBasic struct {
	ShowID      u256.Uint256  `json:"show_id"`
	TxHash      *string       `json:"tx_hash"`
	BlockNumber *u256.Uint256 `json:"block_number"`
	Organizer   string        `json:"organizer"`
	LogIndex    *u256.Uint256 `json:"log_index"`
	CreatedAt   time.Time     `json:"created_at"`
}

// ShowDetail is a row of show_created_events_detail
type ShowDetail struct {
	ShowID       u256.Uint256 `json:"show_id"`
	StartTime    u256.Uint256 `json:"start_time"`
	EndTime      u256.Uint256 `json:"end_time"`
	TotalTickets u256.Uint256 `json:"total_tickets"`
	TicketPrice  u256.Uint256 `json:"ticket_price"`
	Decimal      int64        `json:"decimal"`
	TicketSold   u256.Uint256 `json:"ticket_sold"`
	Organizer    string       `json:"organizer"`
	Location     string       `json:"location"`
	Name         string       `json:"name"`
	Description  string       `json:"description"`
	MetadataURI  *string      `json:"metadata_uri"`
	Status       ShowStatus   `json:"status"`
	CreatedAt    time.Time    `json:"created_at"`
}

// ShowSnapshot is a row of shows, the serving projection
type ShowSnapshot struct {
	ID          u256.Uint256 `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Location    string       `json:"location"`
	EventTime   u256.Uint256 `json:"event_time"`
	TicketPrice u256.Uint256 `json:"ticket_price"`
	MaxTickets  u256.Uint256 `json:"max_tickets"`
	SoldTickets u256.Uint256 `json:"sold_tickets"`
	IsActive    bool         `json:"is_active"`
	Organizer   string       `json:"organizer"`
	CreatedAt   time.Time    `json:"created_at"`
}

// ShowRecords groups the three rows written for one show
type ShowRecords struct {
	Basic    ShowBasic
	Detail   ShowDetail
	Snapshot ShowSnapshot
}

// Validate checks that the three records share one show id
func (r ShowRecords) Validate() error {
	if !r.Basic.ShowID.Eq(r.Detail.ShowID) || !r.Basic.ShowID.Eq(r.Snapshot.ID) {
		return fmt.Errorf("%w: basic=%s detail=%s snapshot=%s",
			ErrMismatchedRecords, r.Basic.ShowID, r.Detail.ShowID, r.Snapshot.ID)
	}
	return nil
}

// ShowState is the full state of one show, as read from the contract or
// supplied by an operator
type ShowState struct {
	ShowID       u256.Uint256
	Name         string
	Description  string
	Location     string
	StartTime    u256.Uint256
	EndTime      u256.Uint256
	TotalTickets u256.Uint256
	TicketPrice  u256.Uint256
	TicketsSold  u256.Uint256
	MetadataURI  string
	Status       ShowStatus
	Organizer    string
}

// EventMeta locates the log a show state was observed from. Fields are nil
// for shows written outside ingestion.
type EventMeta struct {
	TxHash      *string
	BlockNumber *u256.Uint256
	LogIndex    *u256.Uint256
}

// BuildRecords derives the three rows from one show state
func BuildRecords(state ShowState, meta EventMeta, createdAt time.Time) ShowRecords {
	var metadataURI *string
	if state.MetadataURI != "" {
		uri := state.MetadataURI
		metadataURI = &uri
	}

	return ShowRecords{
		Basic: ShowBasic{
			ShowID:      state.ShowID,
			TxHash:      meta.TxHash,
			BlockNumber: meta.BlockNumber,
			Organizer:   state.Organizer,
			LogIndex:    meta.LogIndex,
			CreatedAt:   createdAt,
		},
		Detail: ShowDetail{
			ShowID:       state.ShowID,
			StartTime:    state.StartTime,
			EndTime:      state.EndTime,
			TotalTickets: state.TotalTickets,
			TicketPrice:  state.TicketPrice,
			Decimal:      constants.PriceDecimals,
			TicketSold:   state.TicketsSold,
			Organizer:    state.Organizer,
			Location:     state.Location,
			Name:         state.Name,
			Description:  state.Description,
			MetadataURI:  metadataURI,
			Status:       state.Status,
			CreatedAt:    createdAt,
		},
		Snapshot: ShowSnapshot{
			ID:          state.ShowID,
			Name:        state.Name,
			Description: state.Description,
			Location:    state.Location,
			EventTime:   state.StartTime,
			TicketPrice: state.TicketPrice,
			MaxTickets:  state.TotalTickets,
			SoldTickets: state.TicketsSold,
			IsActive:    state.Status == ShowStatusActive,
			Organizer:   state.Organizer,
			CreatedAt:   createdAt,
		},
	}
}
