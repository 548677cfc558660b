package storage

import (
	"encoding/json"
	"errors"

	"supplyq/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

func EncodeValueTable(record model.ValueTableRecord) ([]byte, error) {
	return json.Marshal(record)
}

func DecodeValueTable(data []byte) (model.ValueTableRecord, error) {
	var record model.ValueTableRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return model.ValueTableRecord{}, err
	}
	if err := checkVersion(record.VersionedRecord); err != nil {
		return model.ValueTableRecord{}, err
	}
	return record, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}
