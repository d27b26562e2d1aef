package harness

import (
	"bytes"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
)

// entropyTape is the random source a session's id strategy draws from.
// Every byte handed out is recorded so the dispatch that consumed it can
// journal it. During replay a journaled entry's bytes are loaded first and
// served before falling back to the live source.
type entropyTape struct {
	live     io.Reader
	replayed []byte
	drawn    bytes.Buffer
}

func newEntropyTape(live io.Reader) *entropyTape {
	if live == nil {
		live = rand.Reader
	}
	return &entropyTape{live: live}
}

func (t *entropyTape) Read(p []byte) (int, error) {
	if len(t.replayed) > 0 {
		n := copy(p, t.replayed)
		t.replayed = t.replayed[n:]
		t.drawn.Write(p[:n])
		return n, nil
	}
	n, err := t.live.Read(p)
	t.drawn.Write(p[:n])
	return n, err
}

// load queues the hex-encoded bytes a journaled entry drew.
func (t *entropyTape) load(encoded string) error {
	b, err := hex.DecodeString(encoded)
	if err != nil {
		return fmt.Errorf("decode entropy: %w", err)
	}
	t.queue(b)
	return nil
}

func (t *entropyTape) queue(b []byte) {
	t.replayed = b
	t.drawn.Reset()
}

// take returns the hex encoding of the bytes drawn since the last take and
// drops any loaded bytes the dispatch left unread.
func (t *entropyTape) take() string {
	out := hex.EncodeToString(t.drawn.Bytes())
	t.drawn.Reset()
	t.replayed = nil
	return out
}

// seedEntropy derives the bytes seed records without an id draw when a
// collection is built, 16 per record, from the definition hash. Every
// session of one definition then assigns its seeds the same ids.
func seedEntropy(defHash string, records int) []byte {
	out := make([]byte, 0, records*16)
	for i := range records {
		sum := sha256.Sum256([]byte(defHash + ":" + strconv.Itoa(i)))
		out = append(out, sum[:16]...)
	}
	return out
}
