package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			-- Single blob table: keys are slash-separated paths, values are
			-- whatever the caller serialized.
			CREATE TABLE blobs (
				key TEXT PRIMARY KEY,
				value BYTEA NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX idx_blobs_updated_at ON blobs(updated_at);
		`,
	}
}
