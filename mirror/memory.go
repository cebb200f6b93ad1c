package mirror

import (
	"bytes"
	"context"
	"io"
	"strconv"
	"sync"

	"github.com/xiaoyuanzhu-com/flowtrack/apperrors"
)

type memNode struct {
	id       string
	title    string
	parentID string
	isFolder bool
	data     []byte
}

// MemoryClient is an in-process mirror for tests and offline use
type MemoryClient struct {
	mu     sync.Mutex
	nextID int
	nodes  []*memNode // creation order
	byID   map[string]*memNode
}

// NewMemoryClient creates an empty in-memory mirror
func NewMemoryClient() *MemoryClient {
	return &MemoryClient{byID: make(map[string]*memNode)}
}

func (m *MemoryClient) add(n *memNode) {
	m.nextID++
	n.id = "mem-" + strconv.Itoa(m.nextID)
	m.nodes = append(m.nodes, n)
	m.byID[n.id] = n
}

func (m *MemoryClient) checkParent(parentID string) error {
	if parentID == "" {
		return nil
	}
	if n, ok := m.byID[parentID]; !ok || !n.isFolder {
		return apperrors.NotFound("mirror", "folder %q not found", parentID)
	}
	return nil
}

func (m *MemoryClient) FindFolder(ctx context.Context, name, parentID string) (*Folder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, n := range m.nodes {
		if n.isFolder && n.parentID == parentID && n.title == name {
			return &Folder{ID: n.id, Title: n.title}, nil
		}
	}
	return nil, nil
}

func (m *MemoryClient) CreateFolder(ctx context.Context, name, parentID string) (*Folder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkParent(parentID); err != nil {
		return nil, err
	}
	n := &memNode{title: name, parentID: parentID, isFolder: true}
	m.add(n)
	return &Folder{ID: n.id, Title: n.title}, nil
}

func (m *MemoryClient) ListFolders(ctx context.Context, parentID string) ([]Folder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	folders := []Folder{}
	for _, n := range m.nodes {
		if n.isFolder && n.parentID == parentID {
			folders = append(folders, Folder{ID: n.id, Title: n.title})
		}
	}
	return folders, nil
}

func (m *MemoryClient) ListFiles(ctx context.Context, parentID string) ([]File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	files := []File{}
	for _, n := range m.nodes {
		if !n.isFolder && n.parentID == parentID {
			files = append(files, File{ID: n.id, Title: n.title, Size: int64(len(n.data))})
		}
	}
	return files, nil
}

func (m *MemoryClient) UploadFile(ctx context.Context, parentID, title string, content io.Reader) (*File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(content)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkParent(parentID); err != nil {
		return nil, err
	}
	n := &memNode{title: title, parentID: parentID, data: data}
	m.add(n)
	return &File{ID: n.id, Title: n.title, Size: int64(len(data))}, nil
}

func (m *MemoryClient) DownloadFile(ctx context.Context, file File, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	n, ok := m.byID[file.ID]
	var data []byte
	if ok && !n.isFolder {
		data = n.data
	}
	m.mu.Unlock()

	if !ok || n.isFolder {
		return apperrors.NotFound("mirror", "file %q not found", file.ID)
	}
	_, err := io.Copy(w, bytes.NewReader(data))
	return err
}

// FileCount returns the number of stored files (for testing)
func (m *MemoryClient) FileCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for _, n := range m.nodes {
		if !n.isFolder {
			count++
		}
	}
	return count
}

var _ Client = (*MemoryClient)(nil)
