package client

import "github.com/mkc909/cryptointel-data-system-sub000/internal/ws"

// Message is the wire envelope exchanged with the hub, re-exported so an
// embedding application can write handlers without reaching into internal
// packages.
type Message = ws.Message

// Server-to-client message types, as delivered to registered handlers.
const (
	TypePriceUpdate           = ws.TypePriceUpdate
	TypeSignalAlert           = ws.TypeSignalAlert
	TypeMarketData            = ws.TypeMarketData
	TypeSystemStatus          = ws.TypeSystemStatus
	TypePong                  = ws.TypePong
	TypeError                 = ws.TypeError
	TypeAuthSuccess           = ws.TypeAuthSuccess
	TypeAuthError             = ws.TypeAuthError
	TypeSubscriptionSuccess   = ws.TypeSubscriptionSuccess
	TypeSubscriptionError     = ws.TypeSubscriptionError
	TypeUnsubscriptionSuccess = ws.TypeUnsubscriptionSuccess
)
