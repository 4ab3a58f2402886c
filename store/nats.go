package store

import (
	"fmt"
	"strings"

	"github.com/devink/campusconnect/internal/logging"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// SubjectPrefix namespaces document change notifications on NATS.
const SubjectPrefix = "campusconnect.docs."

const originHeader = "Campusconnect-Origin"

// BridgeNATS publishes every local write as a change notification and
// refreshes local subscribers when another instance reports a change.
// Notifications carry only the collection name; receivers re-read the data.
func BridgeNATS(nc *nats.Conn, s *SQLiteStore) (stop func(), err error) {
	origin := uuid.NewString()

	sub, err := nc.Subscribe(SubjectPrefix+">", func(msg *nats.Msg) {
		if msg.Header.Get(originHeader) == origin {
			return
		}
		collection := strings.TrimPrefix(msg.Subject, SubjectPrefix)
		logging.DebugLog("NATS bridge: remote change on %s", collection)
		s.Refresh(collection)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s>: %w", SubjectPrefix, err)
	}

	remove := s.OnChange(func(collection string) {
		msg := nats.NewMsg(SubjectPrefix + collection)
		msg.Header.Set(originHeader, origin)
		if err := nc.PublishMsg(msg); err != nil {
			logging.WarnLog("NATS bridge: publish change on %s failed: %v", collection, err)
		}
	})

	logging.InfoLog("NATS bridge started (origin %s)", origin[:8])
	return func() {
		remove()
		if err := sub.Unsubscribe(); err != nil {
			logging.WarnLog("NATS bridge: unsubscribe failed: %v", err)
		}
	}, nil
}
