// Package fulltext implements a word index over message contents, stored in badger.
package fulltext

import (
	"context"
	"encoding/binary"
	"errors"
	"os"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/ProtonMail/localstore/async"
	"github.com/ProtonMail/localstore/logging"
	"github.com/bradenaw/juniper/xslices"
	"github.com/dgraph-io/badger/v3"
	"github.com/sirupsen/logrus"
)

// MinTokenLength is the minimum number of runes of an indexed word.
const MinTokenLength = 2

// maxTokens bounds the number of distinct words indexed for a single message.
const maxTokens = 4096

var (
	postingPrefix = []byte("t/")
	docPrefix     = []byte("d/")
)

// Index maps words to the ids of the messages containing them.
//
// Two kinds of keys are kept: "t/<word>/<id>" for every word of a message and "d/<id>" listing the words
// of the message, so the postings can be found again when the message is removed.
type Index struct {
	db       *badger.DB
	gcExitCh chan struct{}
	wg       sync.WaitGroup
}

// Open opens the index stored in dir, creating it if needed.
func Open(dir string) (*Index, error) {
	return open(badger.DefaultOptions(dir))
}

// OpenInMemory opens an index that lives only as long as the returned value.
func OpenInMemory() (*Index, error) {
	return open(badger.DefaultOptions("").WithInMemory(true))
}

func open(opts badger.Options) (*Index, error) {
	db, err := badger.Open(opts.
		WithLogger(logrus.StandardLogger()).
		WithLoggingLevel(badger.ERROR).
		WithIndexCacheSize(16 * 1024 * 1024),
	)
	if err != nil {
		return nil, err
	}

	idx := &Index{
		db:       db,
		gcExitCh: make(chan struct{}),
	}

	if !opts.InMemory {
		idx.wg.Add(1)

		logging.GoAnnotated(context.Background(), async.NoopPanicHandler{}, idx.collectGarbage, logging.Labels{"index": opts.Dir})
	}

	return idx, nil
}

func (idx *Index) collectGarbage(context.Context) {
	defer idx.wg.Done()

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			for idx.db.RunValueLogGC(0.5) == nil {
			}

		case <-idx.gcExitCh:
			return
		}
	}
}

// Index replaces the words recorded for the message with the words of text.
func (idx *Index) Index(id int64, text string) error {
	tokens := Tokenize(text)
	if len(tokens) > maxTokens {
		tokens = tokens[:maxTokens]
	}

	return idx.db.Update(func(txn *badger.Txn) error {
		if err := removeDoc(txn, id); err != nil {
			return err
		}

		if len(tokens) == 0 {
			return nil
		}

		for _, token := range tokens {
			if err := txn.Set(postingKey(token, id), nil); err != nil {
				return err
			}
		}

		return txn.Set(docKey(id), []byte(strings.Join(tokens, "\n")))
	})
}

// Remove forgets the words recorded for the given messages. Unknown ids are ignored.
func (idx *Index) Remove(ids ...int64) error {
	for _, chunk := range xslices.Chunk(ids, 64) {
		if err := idx.db.Update(func(txn *badger.Txn) error {
			for _, id := range chunk {
				if err := removeDoc(txn, id); err != nil {
					return err
				}
			}

			return nil
		}); err != nil {
			return err
		}
	}

	return nil
}

// Search returns the sorted ids of the messages containing every word of query.
// A query without words matches nothing.
func (idx *Index) Search(query string) ([]int64, error) {
	tokens := Tokenize(query)
	if len(tokens) == 0 {
		return nil, nil
	}

	var result []int64

	if err := idx.db.View(func(txn *badger.Txn) error {
		for i, token := range tokens {
			ids := postings(txn, token)

			if i == 0 {
				result = ids
			} else {
				result = xslices.Filter(result, func(id int64) bool {
					_, ok := slices.BinarySearch(ids, id)
					return ok
				})
			}

			if len(result) == 0 {
				return nil
			}
		}

		return nil
	}); err != nil {
		return nil, err
	}

	return result, nil
}

// Drop removes every entry of the index.
func (idx *Index) Drop() error {
	return idx.db.DropAll()
}

func (idx *Index) Close() error {
	close(idx.gcExitCh)
	idx.wg.Wait()

	return idx.db.Close()
}

// Delete removes the index stored in dir.
func Delete(dir string) error {
	return os.RemoveAll(dir)
}

// Tokenize splits text into distinct lower-cased words made of letters and digits, in order of first occurrence.
func Tokenize(text string) []string {
	var (
		tokens []string
		seen   = make(map[string]struct{})
	)

	for _, word := range strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if len([]rune(word)) < MinTokenLength {
			continue
		}

		word = strings.ToLower(word)

		if _, ok := seen[word]; ok {
			continue
		}

		seen[word] = struct{}{}
		tokens = append(tokens, word)
	}

	return tokens
}

func removeDoc(txn *badger.Txn, id int64) error {
	item, err := txn.Get(docKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil
	} else if err != nil {
		return err
	}

	words, err := item.ValueCopy(nil)
	if err != nil {
		return err
	}

	for _, token := range strings.Split(string(words), "\n") {
		if err := txn.Delete(postingKey(token, id)); err != nil {
			return err
		}
	}

	return txn.Delete(docKey(id))
}

// postings returns the ids recorded for the token in ascending order.
func postings(txn *badger.Txn, token string) []int64 {
	prefix := postingKey(token, 0)
	prefix = prefix[:len(prefix)-8]

	it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix})
	defer it.Close()

	var ids []int64

	for it.Rewind(); it.Valid(); it.Next() {
		key := it.Item().Key()

		if len(key) != len(prefix)+8 {
			continue
		}

		ids = append(ids, int64(binary.BigEndian.Uint64(key[len(prefix):])))
	}

	return ids
}

func postingKey(token string, id int64) []byte {
	key := append(append(slices.Clone(postingPrefix), token...), '/')

	return binary.BigEndian.AppendUint64(key, uint64(id))
}

func docKey(id int64) []byte {
	return binary.BigEndian.AppendUint64(slices.Clone(docPrefix), uint64(id))
}
