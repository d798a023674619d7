package migration

// Migrations is the ordered set of DDL steps applied on startup. New steps
// append to the end; existing entries must never change once released,
// since their (ModuleName, Id) pair is the idempotency key in
// schema_migrations.
var Migrations = []Migration{
	{
		ModuleName: "history",
		Id:         "0001_create_chat_messages",
		Statement: `CREATE TABLE IF NOT EXISTS chat_messages (
			scope_id text,
			created_at_utc timestamp,
			message_id text,
			sender_id text,
			text text,
			origin_replica_id text,
			broker_partition int,
			broker_offset bigint,
			PRIMARY KEY (scope_id, created_at_utc, message_id)
		) WITH CLUSTERING ORDER BY (created_at_utc ASC, message_id ASC)
		  AND compaction = {'class': 'SizeTieredCompactionStrategy'}
		  AND compression = {'sstable_compression': 'LZ4Compressor'}`,
	},
}
