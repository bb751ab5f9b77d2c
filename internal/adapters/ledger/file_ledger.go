package ledger

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/gfroerli/lindas-foen-fetcher/internal/domain"
	"github.com/gfroerli/lindas-foen-fetcher/internal/ports"
)

// record format: [8 bytes sensor_id][8 bytes measurement ts][8 bytes sent_at]
const fileRecordLen = 24

// ledgerFile is the part of *os.File the ledger uses.
type ledgerFile interface {
	io.ReadWriteSeeker
	io.Closer
	Truncate(size int64) error
	Sync() error
}

type fileKey struct {
	sensor uint32
	ts     int64
}

// FileLedger is an append-only ledger file for hosts without a database.
// All keys are held in memory; every RecordSent is fsynced before it returns.
type FileLedger struct {
	mu   sync.Mutex
	path string
	file ledgerFile
	size int64
	sent map[fileKey]int64
	now  func() time.Time
}

// OpenFile opens or creates the ledger at path and loads its entries. A torn
// record at the tail, left by an interrupted append, is truncated.
func OpenFile(path string) (*FileLedger, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open file ledger: %w", err)
	}

	l := &FileLedger{
		path: path,
		file: f,
		sent: make(map[fileKey]int64),
		now:  time.Now,
	}
	if err := l.load(); err != nil {
		_ = f.Close()
		return nil, err
	}
	return l, nil
}

func (l *FileLedger) load() error {
	r := bufio.NewReader(l.file)
	var offset int64
	for {
		var rec [fileRecordLen]byte
		if _, err := io.ReadFull(r, rec[:]); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return fmt.Errorf("file ledger scan: %w", err)
		}
		k, sentAt := decodeRecord(rec)
		l.sent[k] = sentAt
		offset += fileRecordLen
	}

	if err := l.file.Truncate(offset); err != nil {
		return err
	}
	if _, err := l.file.Seek(offset, io.SeekStart); err != nil {
		return err
	}
	l.size = offset
	return nil
}

func (l *FileLedger) HasBeenSent(_ context.Context, sensorID uint32, at time.Time) (bool, error) {
	sensor, ts := domain.LedgerKey(sensorID, at)

	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.sent[fileKey{sensor, ts}]
	return ok, nil
}

func (l *FileLedger) RecordSent(_ context.Context, sensorID uint32, at time.Time) error {
	sensor, ts := domain.LedgerKey(sensorID, at)
	k := fileKey{sensor, ts}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.sent[k]; ok {
		return fmt.Errorf("record sensor %d at %d: %w", sensor, ts, domain.ErrAlreadyRecorded)
	}

	sentAt := l.now().Unix()
	rec := encodeRecord(k, sentAt)
	if _, err := l.file.Write(rec[:]); err != nil {
		l.rollback()
		return fmt.Errorf("record sensor %d at %d: %w", sensor, ts, err)
	}
	if err := l.file.Sync(); err != nil {
		l.rollback()
		return fmt.Errorf("record sensor %d at %d: sync: %w", sensor, ts, err)
	}
	l.size += fileRecordLen
	l.sent[k] = sentAt
	return nil
}

// rollback drops an unconfirmed record so later appends stay aligned.
func (l *FileLedger) rollback() {
	_ = l.file.Truncate(l.size)
	_, _ = l.file.Seek(l.size, io.SeekStart)
}

// Entries lists the ledger of a sensor, oldest measurement first.
func (l *FileLedger) Entries(_ context.Context, sensorID uint32) ([]domain.LedgerEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []domain.LedgerEntry
	for k, sentAt := range l.sent {
		if k.sensor != sensorID {
			continue
		}
		out = append(out, domain.LedgerEntry{
			SensorID:        sensorID,
			MeasurementTime: time.Unix(k.ts, 0).UTC(),
			SentAt:          time.Unix(sentAt, 0).UTC(),
		})
	}
	slices.SortFunc(out, func(a, b domain.LedgerEntry) int {
		return a.MeasurementTime.Compare(b.MeasurementTime)
	})
	return out, nil
}

func (l *FileLedger) Count(context.Context) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return int64(len(l.sent)), nil
}

func (l *FileLedger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}

func encodeRecord(k fileKey, sentAt int64) [fileRecordLen]byte {
	var rec [fileRecordLen]byte
	binary.BigEndian.PutUint64(rec[0:8], uint64(k.sensor))
	binary.BigEndian.PutUint64(rec[8:16], uint64(k.ts))
	binary.BigEndian.PutUint64(rec[16:24], uint64(sentAt))
	return rec
}

func decodeRecord(rec [fileRecordLen]byte) (fileKey, int64) {
	return fileKey{
		sensor: uint32(binary.BigEndian.Uint64(rec[0:8])),
		ts:     int64(binary.BigEndian.Uint64(rec[8:16])),
	}, int64(binary.BigEndian.Uint64(rec[16:24]))
}

var _ ports.Ledger = (*FileLedger)(nil)
