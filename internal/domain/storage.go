package domain

// BlobStore is the raw key-value persistence boundary: JSON blobs under
// logical keys. Get returns ErrKeyNotFound for a missing key.
type BlobStore interface {
	Get(key string) ([]byte, error)
	Put(key string, data []byte) error
}

// Logical store keys.
const (
	KeyReaderData = "reader_data"
	KeySettings   = "global_settings"
	KeyLibrary    = "library"
)
