// Package journal 提供基于 badger 的监督事件日志
//
// 日志只追加不回读：监督决策永远不依赖历史事件，这里记录的内容
// 仅用于 outrider events 这类事后排查。键按事件时间排序（8 字节
// 大端纳秒 + uuid 片段防冲突），值为 cbor 编码的 codec.Event。
package journal

import (
	"encoding/binary"
	"fmt"
	"time"

	"outrider/pkg/codec"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

type Journal struct {
	db *badger.DB
}

func Open(dir string) (*Journal, error) {
	opts := badger.DefaultOptions(dir)
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open journal at %s: %w", dir, err)
	}

	return &Journal{db: db}, nil
}

// Record 追加一条事件，ID 和时间为空时自动补齐
//
// 注意事项：
//
//	nil Journal 上调用是安全的空操作，宿主不配置日志时
//	监督代码不需要做任何判断。
func (j *Journal) Record(ev *codec.Event) error {
	if j == nil || j.db == nil || j.db.IsClosed() {
		return nil
	}

	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}

	data, err := codec.Encode(ev)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", ev.Kind, err)
	}

	return j.db.Update(func(txn *badger.Txn) error {
		return txn.Set(eventKey(ev), data)
	})
}

// Recent 返回最近的 limit 条事件，新的在前
func (j *Journal) Recent(limit int) ([]*codec.Event, error) {
	if j == nil || j.db == nil || j.db.IsClosed() {
		return nil, nil
	}

	if limit <= 0 {
		limit = 20
	}

	events := make([]*codec.Event, 0, limit)

	err := j.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid() && len(events) < limit; it.Next() {
			err := it.Item().Value(func(val []byte) error {
				ev, err := codec.Decode[codec.Event](val)
				if err != nil {
					return err
				}

				events = append(events, ev)

				return nil
			})
			if err != nil {
				return err
			}
		}

		return nil
	})

	return events, err
}

func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}

	return j.db.Close()
}

func eventKey(ev *codec.Event) []byte {
	key := make([]byte, 16)
	binary.BigEndian.PutUint64(key[:8], uint64(ev.Time.UnixNano()))

	u, err := uuid.Parse(ev.ID)
	if err != nil {
		u = uuid.New()
	}
	copy(key[8:], u[:8])

	return key
}
