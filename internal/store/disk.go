package store

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
)

const (
	diskOpDelete byte = 0
	diskOpSet    byte = 1

	// op + snapshot id + payload size
	diskHeaderSize = 1 + 16 + 4
)

type diskRecordMeta struct {
	offset int64
	size   uint32
	info   Info
}

// Disk keeps snapshots in a single append-only log file. Each record is a
// fixed header followed by a zstd-compressed gob payload; deletions append a
// tombstone. The index is rebuilt by replaying the log on open.
type Disk struct {
	mu      sync.RWMutex
	file    *os.File
	retain  int
	records map[uuid.UUID]diskRecordMeta
	order   []uuid.UUID
	encoder *zstd.Encoder
	decoder *zstd.Decoder
	closed  bool
}

// OpenDisk opens or creates the snapshot log at path.
func OpenDisk(path string, retain int) (*Disk, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open snapshot log: %w", err)
	}
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		encoder.Close()
		f.Close()
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	d := &Disk{
		file:    f,
		retain:  retain,
		records: make(map[uuid.UUID]diskRecordMeta),
		encoder: encoder,
		decoder: decoder,
	}
	if err := d.loadIndex(); err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

// loadIndex replays the log. A torn record at the tail, left by a crash
// between the header and payload writes of Save, is cut off so the store
// opens with every complete record.
func (d *Disk) loadIndex() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, err := d.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewind snapshot log: %w", err)
	}

	header := make([]byte, diskHeaderSize)
	var offset int64
	for {
		if _, err := io.ReadFull(d.file, header); err != nil {
			if err == io.EOF {
				return nil
			}
			if err == io.ErrUnexpectedEOF {
				return d.truncateTail(offset, "header")
			}
			return fmt.Errorf("read snapshot header: %w", err)
		}
		op, id, size := decodeHeader(header)
		recordOffset := offset

		payload := make([]byte, size)
		if _, err := io.ReadFull(d.file, payload); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return d.truncateTail(recordOffset, fmt.Sprintf("snapshot %s payload", id))
			}
			return fmt.Errorf("read snapshot %s payload: %w", id, err)
		}
		offset += diskHeaderSize + int64(size)

		if op != diskOpSet {
			delete(d.records, id)
			d.order = removeID(d.order, id)
			continue
		}

		snap, err := d.decode(payload)
		if err != nil {
			return fmt.Errorf("snapshot %s: %w", id, err)
		}
		if _, exists := d.records[id]; exists {
			d.order = removeID(d.order, id)
		}
		d.records[id] = diskRecordMeta{offset: recordOffset, size: size, info: snap.Info()}
		d.order = append(d.order, id)
	}
}

func (d *Disk) truncateTail(offset int64, what string) error {
	log.Printf("snapshot log %s: torn %s at offset %d, truncating", d.file.Name(), what, offset)
	if err := d.file.Truncate(offset); err != nil {
		return fmt.Errorf("truncate torn snapshot log: %w", err)
	}
	if err := d.file.Sync(); err != nil {
		return fmt.Errorf("sync snapshot log: %w", err)
	}
	return nil
}

func (d *Disk) Save(snap *Snapshot) error {
	if err := snap.validate(); err != nil {
		return err
	}
	if snap.ID == uuid.Nil {
		snap.ID = uuid.New()
	}
	payload, err := d.encode(snap)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}

	offset, err := d.file.Seek(0, io.SeekEnd)
	if err != nil {
		return fmt.Errorf("seek log end: %w", err)
	}
	if _, err := d.file.Write(encodeHeader(diskOpSet, snap.ID, uint32(len(payload)))); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if _, err := d.file.Write(payload); err != nil {
		return fmt.Errorf("write payload: %w", err)
	}
	if err := d.file.Sync(); err != nil {
		return fmt.Errorf("sync snapshot log: %w", err)
	}
	if _, exists := d.records[snap.ID]; exists {
		d.order = removeID(d.order, snap.ID)
	}
	d.records[snap.ID] = diskRecordMeta{offset: offset, size: uint32(len(payload)), info: snap.Info()}
	d.order = append(d.order, snap.ID)

	for _, id := range evictions(d.order, d.retain) {
		if err := d.deleteLocked(id); err != nil {
			return fmt.Errorf("evict snapshot %s: %w", id, err)
		}
	}
	return nil
}

func (d *Disk) Load(id uuid.UUID) (*Snapshot, bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return nil, false, ErrClosed
	}
	meta, ok := d.records[id]
	if !ok {
		return nil, false, nil
	}

	header := make([]byte, diskHeaderSize)
	if _, err := d.file.ReadAt(header, meta.offset); err != nil {
		return nil, false, fmt.Errorf("read header at %d: %w", meta.offset, err)
	}
	if op, _, _ := decodeHeader(header); op != diskOpSet {
		return nil, false, nil
	}
	payload := make([]byte, meta.size)
	if _, err := d.file.ReadAt(payload, meta.offset+diskHeaderSize); err != nil {
		return nil, false, fmt.Errorf("read payload: %w", err)
	}
	snap, err := d.decode(payload)
	if err != nil {
		return nil, false, fmt.Errorf("snapshot %s: %w", id, err)
	}
	return snap, true, nil
}

func (d *Disk) List() ([]Info, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return nil, ErrClosed
	}
	infos := make([]Info, 0, len(d.order))
	for _, id := range d.order {
		infos = append(infos, d.records[id].info)
	}
	return infos, nil
}

func (d *Disk) Delete(id uuid.UUID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	if _, ok := d.records[id]; !ok {
		return nil
	}
	return d.deleteLocked(id)
}

func (d *Disk) deleteLocked(id uuid.UUID) error {
	if _, err := d.file.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("seek log end: %w", err)
	}
	if _, err := d.file.Write(encodeHeader(diskOpDelete, id, 0)); err != nil {
		return fmt.Errorf("write delete header: %w", err)
	}
	if err := d.file.Sync(); err != nil {
		return fmt.Errorf("sync snapshot log: %w", err)
	}
	delete(d.records, id)
	d.order = removeID(d.order, id)
	return nil
}

func (d *Disk) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	d.decoder.Close()
	encErr := d.encoder.Close()
	fileErr := d.file.Close()
	return errors.Join(encErr, fileErr)
}

func (d *Disk) encode(snap *Snapshot) ([]byte, error) {
	var raw bytes.Buffer
	if err := gob.NewEncoder(&raw).Encode(snap); err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return d.encoder.EncodeAll(raw.Bytes(), nil), nil
}

func (d *Disk) decode(payload []byte) (*Snapshot, error) {
	raw, err := d.decoder.DecodeAll(payload, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress snapshot: %w", err)
	}
	var snap Snapshot
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}

func encodeHeader(op byte, id uuid.UUID, size uint32) []byte {
	header := make([]byte, diskHeaderSize)
	header[0] = op
	copy(header[1:17], id[:])
	binary.LittleEndian.PutUint32(header[17:21], size)
	return header
}

func decodeHeader(header []byte) (byte, uuid.UUID, uint32) {
	var id uuid.UUID
	copy(id[:], header[1:17])
	return header[0], id, binary.LittleEndian.Uint32(header[17:21])
}
