package consul

import (
	"encoding/json"
	"fmt"

	"github.com/hashicorp/consul/api"
	"github.com/mwantia/afs/data"
)

// record is the value stored for every object.
type record struct {
	Stat    *data.ObjectStat `json:"stat"`
	Content []byte           `json:"content,omitempty"`
}

func (cb *ConsulBackend) encode(rec *record) ([]byte, error) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	return cb.encoder.EncodeAll(raw, nil), nil
}

func (cb *ConsulBackend) decode(pair *api.KVPair) (*record, error) {
	raw, err := cb.decoder.DecodeAll(pair.Value, nil)
	if err != nil {
		return nil, fmt.Errorf("corrupt entry %q: %w", pair.Key, err)
	}

	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("corrupt entry %q: %w", pair.Key, err)
	}
	if rec.Stat == nil {
		return nil, fmt.Errorf("corrupt entry %q: missing stat", pair.Key)
	}

	rec.Stat.Inode = int64(pair.CreateIndex)
	rec.Stat.Size = int64(len(rec.Content))
	return &rec, nil
}
