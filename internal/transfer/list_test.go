package transfer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/lanchat/lanchat/internal/model"
)

func TestAddAndFind(t *testing.T) {
	list := NewList()
	bob := model.NewUser("Bob", 10000002)
	carol := model.NewUser("Carol", 10000003)

	path := filepath.Join(t.TempDir(), "test.txt")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	fs, err := list.AddFileSender(bob, path)
	if err != nil {
		t.Fatalf("AddFileSender failed: %v", err)
	}
	fr := list.AddFileReceiver(carol, filepath.Join(t.TempDir(), "photo.jpg"), 2048, 77)

	if fs.ID() == fr.ID() {
		t.Fatalf("Ids should be unique: %d", fs.ID())
	}

	if got := list.FileSender(bob, "test.txt", fs.FileHash()); got != fs {
		t.Fatal("FileSender should find the sender by name and hash")
	}
	if got := list.FileSender(bob, "test.txt", fs.FileHash()+1); got != nil {
		t.Fatal("FileSender should not match another hash")
	}
	if got := list.FileSenderByID(carol, fs.ID()); got != nil {
		t.Fatal("FileSenderByID should not match another user")
	}

	// users are compared by code, not by pointer
	carolAgain := model.NewUser("Carol", 10000003)
	if got := list.FileReceiver(carolAgain, "photo.jpg"); got != fr {
		t.Fatal("FileReceiver should find the receiver by the offered name")
	}
	if got := list.FileTransferByID(carol, fr.ID()); got != FileTransfer(fr) {
		t.Fatal("FileTransferByID should find the receiver")
	}
	if got := list.ByID(fs.ID()); got != FileTransfer(fs) {
		t.Fatal("ByID should find the sender")
	}
	if got := list.ByID(999); got != nil {
		t.Fatal("ByID should return nil for unknown ids")
	}
	if n := len(list.All()); n != 2 {
		t.Fatalf("Expected 2 transfers, got %d", n)
	}
}

func TestRemove(t *testing.T) {
	list := NewList()
	bob := model.NewUser("Bob", 10000002)

	first := list.AddFileReceiver(bob, "/tmp/a", 1, 1)
	second := list.AddFileReceiver(bob, "/tmp/b", 1, 2)

	// the copy is not affected by later changes
	snapshot := list.FileReceivers(bob)
	list.Remove(first)

	if len(snapshot) != 2 {
		t.Fatalf("Snapshot changed: %d entries", len(snapshot))
	}
	remaining := list.AllFileReceivers()
	if len(remaining) != 1 || remaining[0] != second {
		t.Fatalf("Wrong receivers after remove: %v", remaining)
	}
	if list.FileTransfer(bob, "a") != nil {
		t.Fatal("Removed receiver should not be found")
	}
}

func TestAddFileSenderMissingFile(t *testing.T) {
	list := NewList()

	if _, err := list.AddFileSender(model.NewUser("Bob", 1), "/does/not/exist"); err == nil {
		t.Fatal("AddFileSender should fail for a missing file")
	}
	if n := len(list.AllFileSenders()); n != 0 {
		t.Fatalf("Expected no senders, got %d", n)
	}
}
