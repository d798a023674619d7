// Package history implements the History Store (C11): a time-bucketed,
// append-only conversation store over ScyllaDB, continuing clients/scylla
// (gocql session) with gocqlx/v3 for query-building and struct scanning.
// moznion/go-optional represents the optional fetch bounds idiomatically
// instead of sentinel zero-times.
package history

import (
	"chat/src/clients/scylla"
	"chat/src/domain/event"
	"chat/src/domain/scope"
	"chat/src/platform/apperr"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gocql/gocql"
	"github.com/moznion/go-optional"
	"github.com/scylladb/gocqlx/v3"
	"github.com/scylladb/gocqlx/v3/table"
)

const tableName = "chat_messages"

var metadata = table.Metadata{
	Name:    tableName,
	Columns: []string{"scope_id", "created_at_utc", "message_id", "sender_id", "text", "origin_replica_id", "broker_partition", "broker_offset"},
	PartKey: []string{"scope_id"},
	SortKey: []string{"created_at_utc", "message_id"},
}

var messagesTable = table.New(metadata)

// row is the persisted shape of an EnrichedEvent, one column per field of
// the abstract chat_messages schema in §4.10.
type row struct {
	ScopeId         string    `db:"scope_id"`
	CreatedAtUtc    time.Time `db:"created_at_utc"`
	MessageId       string    `db:"message_id"`
	SenderId        string    `db:"sender_id"`
	Text            string    `db:"text"`
	OriginReplicaId string    `db:"origin_replica_id"`
	BrokerPartition int32     `db:"broker_partition"`
	BrokerOffset    int64     `db:"broker_offset"`
}

type Store struct {
	session gocqlx.Session
}

func New(client *scylla.Client) (*Store, error) {
	session, err := gocqlx.WrapSession(client.Driver, nil)
	if err != nil {
		return nil, fmt.Errorf("history: failed to wrap scylla session: %w", err)
	}
	return &Store{session: session}, nil
}

// Append implements C11's append(EnrichedEvent): insert with clustering
// tuple (CreatedAtUtc, MessageId). The same tuple overwrites with identical
// data, which is how a rebroadcast re-delivery is absorbed idempotently.
func (s *Store) Append(ctx context.Context, evt event.EnrichedEvent) error {
	scopeKey, err := evt.Key()
	if err != nil {
		return apperr.Invalid("history.store", "ScopeId", err.Error())
	}

	r := row{
		ScopeId:         scopeKey,
		CreatedAtUtc:    evt.CreatedAtUtc.UTC(),
		MessageId:       evt.MessageId,
		SenderId:        evt.SenderId,
		Text:            evt.Text,
		OriginReplicaId: evt.OriginReplicaId,
		BrokerPartition: evt.Partition,
		BrokerOffset:    evt.Offset,
	}

	stmt, names := messagesTable.Insert()
	q := s.session.Query(stmt, names).BindStruct(r).WithContext(ctx)
	q.Consistency(gocql.Quorum)

	if err := q.ExecRelease(); err != nil {
		return classifyStoreError(err)
	}
	return nil
}

// Fetch implements C11's fetch(ScopeKey, fromUtc?, toUtc?, limit): events
// in ascending time order, bounded optionally on both ends.
func (s *Store) Fetch(ctx context.Context, scopeKey string, fromUtc, toUtc optional.Option[time.Time], limit int) ([]event.EnrichedEvent, error) {
	stmt := fmt.Sprintf("SELECT %s FROM %s WHERE scope_id = ?", strings.Join(metadata.Columns, ", "), tableName)
	args := []any{scopeKey}

	if v, ok := fromUtc.Take(); ok {
		stmt += " AND created_at_utc >= ?"
		args = append(args, v.UTC())
	}
	if v, ok := toUtc.Take(); ok {
		stmt += " AND created_at_utc <= ?"
		args = append(args, v.UTC())
	}
	stmt += " ORDER BY created_at_utc ASC LIMIT ?"
	args = append(args, limit)

	q := s.session.Session.Query(stmt, args...).WithContext(ctx)
	q.Consistency(gocql.Quorum)

	var rows []row
	if err := gocqlx.Select(&rows, q); err != nil {
		return nil, classifyStoreError(err)
	}

	events := make([]event.EnrichedEvent, 0, len(rows))
	for _, r := range rows {
		scopeType, scopeId := splitScopeKey(r.ScopeId)
		events = append(events, event.EnrichedEvent{
			ChatEvent: event.ChatEvent{
				MessageId:       r.MessageId,
				ScopeType:       scopeType,
				ScopeId:         scopeId,
				SenderId:        r.SenderId,
				Text:            r.Text,
				CreatedAtUtc:    r.CreatedAtUtc,
				OriginReplicaId: r.OriginReplicaId,
			},
			Partition: r.BrokerPartition,
			Offset:    r.BrokerOffset,
		})
	}
	return events, nil
}

func splitScopeKey(scopeKey string) (scope.Type, string) {
	typeStr, id, found := strings.Cut(scopeKey, ":")
	if !found {
		return 0, scopeKey
	}
	t, _ := scope.ParseType(typeStr)
	return t, id
}

// classifyStoreError distinguishes transient from permanent storage
// failures for the Persister Consumer's retry policy (§4.9).
func classifyStoreError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case isTimeoutOrUnavailable(err):
		return apperr.New(apperr.TransientStoreError, err)
	default:
		return apperr.New(apperr.PermanentStoreError, err)
	}
}

func isTimeoutOrUnavailable(err error) bool {
	switch err.(type) {
	case *gocql.RequestErrWriteTimeout, *gocql.RequestErrReadTimeout, gocql.RequestErrUnavailable:
		return true
	default:
		return false
	}
}
