package store

import (
	jsoniter "github.com/json-iterator/go"

	"github.com/kvquery/kvquery"
)

// recordJSON is the wire format BadgerStore persists record values as.
// Enriched from the rest of the example pack: jsoniter is the JSON
// implementation several of the retrieved repos reach for over
// encoding/json, and it is a drop-in codec for the schemaless
// map[string]Value records this store holds, unlike the teacher's own
// fixed-width StorageDatom encoding which assumes a single scalar value
// per row.
var recordJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// encodeRecord serializes a record for storage as a Badger value.
func encodeRecord(r kvquery.Record) ([]byte, error) {
	return recordJSON.Marshal(r)
}

// decodeRecord deserializes a Badger value back into a record. Numeric
// fields round-trip as float64 per encoding/json's own behavior; callers
// that need int64 precision should store values pre-formatted as strings.
func decodeRecord(data []byte) (kvquery.Record, error) {
	var r kvquery.Record
	if err := recordJSON.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return r, nil
}
