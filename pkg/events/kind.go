// Package events turns ShowManager logs into persisted show state: the
// listener drives a live log subscription, the router dispatches each log by
// address and signature, and the decoder refetches the show from the chain.
package events

import (
	"github.com/0xmhha/show-indexer/pkg/showmanager"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Kind is the closed set of recognized events
type Kind int

const (
	// KindUnrecognized is any log from the tracked contract without a handler
	KindUnrecognized Kind = iota
	// KindShowCreated is ShowManager.ShowCreated
	KindShowCreated
)

// String returns the event name
func (k Kind) String() string {
	switch k {
	case KindShowCreated:
		return showmanager.EventShowCreated
	default:
		return "Unrecognized"
	}
}

var kindByTopic = map[common.Hash]Kind{
	showmanager.ShowCreatedTopic(): KindShowCreated,
}

// Classify resolves the kind of a log from its first topic
func Classify(log *types.Log) Kind {
	if len(log.Topics) == 0 {
		return KindUnrecognized
	}
	if kind, ok := kindByTopic[log.Topics[0]]; ok {
		return kind
	}
	return KindUnrecognized
}
