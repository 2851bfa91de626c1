// Package showmanager binds the ShowManager contract: its ABI, the
// ShowCreated event, the getShow state read and the updateShow call.
package showmanager

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// ABIJSON is the subset of the ShowManager ABI the indexer uses
const ABIJSON = `[
  {
    "type": "event",
    "name": "ShowCreated",
    "anonymous": false,
    "inputs": [
      {"name": "showId", "type": "uint256", "indexed": true},
      {"name": "organizer", "type": "address", "indexed": true},
      {"name": "name", "type": "string", "indexed": false},
      {"name": "startTime", "type": "uint256", "indexed": false},
      {"name": "endTime", "type": "uint256", "indexed": false},
      {"name": "venue", "type": "string", "indexed": false}
    ]
  },
  {
    "type": "function",
    "name": "getShow",
    "stateMutability": "view",
    "inputs": [{"name": "showId", "type": "uint256"}],
    "outputs": [
      {
        "name": "",
        "type": "tuple",
        "internalType": "struct ShowManager.Show",
        "components": [
          {"name": "id", "type": "uint256"},
          {"name": "name", "type": "string"},
          {"name": "description", "type": "string"},
          {"name": "location", "type": "string"},
          {"name": "startTime", "type": "uint256"},
          {"name": "endTime", "type": "uint256"},
          {"name": "totalTickets", "type": "uint256"},
          {"name": "ticketPrice", "type": "uint256"},
          {"name": "ticketsSold", "type": "uint256"},
          {"name": "metadataURI", "type": "string"},
          {"name": "status", "type": "uint8"}
        ]
      }
    ]
  },
  {
    "type": "function",
    "name": "updateShow",
    "stateMutability": "nonpayable",
    "inputs": [
      {"name": "showId", "type": "uint256"},
      {"name": "name", "type": "string"},
      {"name": "metadataURI", "type": "string"}
    ],
    "outputs": []
  }
]`

const (
	EventShowCreated = "ShowCreated"
	MethodGetShow    = "getShow"
	MethodUpdateShow = "updateShow"
)

var (
	// ErrNotShowCreated is returned when a log does not carry the ShowCreated signature
	ErrNotShowCreated = errors.New("log is not a ShowCreated event")

	// ErrMalformedLog is returned when a ShowCreated log has the wrong shape
	ErrMalformedLog = errors.New("malformed ShowCreated log")
)

var contractABI = mustParseABI()

func mustParseABI() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(ABIJSON))
	if err != nil {
		panic(fmt.Sprintf("showmanager: invalid ABI: %v", err))
	}
	return parsed
}

// ABI returns the parsed contract ABI
func ABI() abi.ABI {
	return contractABI
}

// ShowCreatedTopic is the topic0 of the ShowCreated event
func ShowCreatedTopic() common.Hash {
	return contractABI.Events[EventShowCreated].ID
}
