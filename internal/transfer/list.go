package transfer

import (
	"sync"

	"github.com/lanchat/lanchat/internal/model"
)

// List is a thread-safe store of the active file transfers. Every
// transfer gets a unique id from the list's counter. Lookups by user
// compare the user code.
type List struct {
	mu        sync.Mutex
	senders   []*FileSender
	receivers []*FileReceiver
	lastID    int
}

// NewList creates an empty transfer list
func NewList() *List {
	return &List{}
}

// AddFileSender creates and stores a sender of the file at path to user
func (l *List) AddFileSender(user *model.User, path string) (*FileSender, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	fs, err := NewFileSender(user, path, l.lastID+1)
	if err != nil {
		return nil, err
	}
	l.lastID++
	l.senders = append(l.senders, fs)
	return fs, nil
}

// AddFileReceiver creates and stores a receiver of a file offered by user
func (l *List) AddFileReceiver(user *model.User, file string, size int64, hash int) *FileReceiver {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.lastID++
	fr := NewFileReceiver(user, file, size, hash, l.lastID)
	l.receivers = append(l.receivers, fr)
	return fr
}

// RemoveFileSender removes the sender from the list
func (l *List) RemoveFileSender(fs *FileSender) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, s := range l.senders {
		if s == fs {
			l.senders = append(l.senders[:i], l.senders[i+1:]...)
			return
		}
	}
}

// RemoveFileReceiver removes the receiver from the list
func (l *List) RemoveFileReceiver(fr *FileReceiver) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, r := range l.receivers {
		if r == fr {
			l.receivers = append(l.receivers[:i], l.receivers[i+1:]...)
			return
		}
	}
}

// Remove removes a sender or receiver
func (l *List) Remove(ft FileTransfer) {
	switch t := ft.(type) {
	case *FileSender:
		l.RemoveFileSender(t)
	case *FileReceiver:
		l.RemoveFileReceiver(t)
	}
}

// FileSender finds the sender of fileName with fileHash to user
func (l *List) FileSender(user *model.User, fileName string, fileHash int) *FileSender {
	return l.findSender(func(fs *FileSender) bool {
		return sameUser(fs.User(), user) && fs.FileName() == fileName && fs.FileHash() == fileHash
	})
}

// FileSenderByName finds the first sender of fileName to user
func (l *List) FileSenderByName(user *model.User, fileName string) *FileSender {
	return l.findSender(func(fs *FileSender) bool {
		return sameUser(fs.User(), user) && fs.FileName() == fileName
	})
}

// FileSenderByID finds the sender to user with the given id
func (l *List) FileSenderByID(user *model.User, id int) *FileSender {
	return l.findSender(func(fs *FileSender) bool {
		return sameUser(fs.User(), user) && fs.ID() == id
	})
}

// FileReceiver finds the receiver of the offer of fileName from user
func (l *List) FileReceiver(user *model.User, fileName string) *FileReceiver {
	return l.findReceiver(func(fr *FileReceiver) bool {
		return sameUser(fr.User(), user) && fr.OriginalFileName() == fileName
	})
}

// FileReceiverByID finds the receiver from user with the given id
func (l *List) FileReceiverByID(user *model.User, id int) *FileReceiver {
	return l.findReceiver(func(fr *FileReceiver) bool {
		return sameUser(fr.User(), user) && fr.ID() == id
	})
}

// FileSenders returns a copy of the senders to user
func (l *List) FileSenders(user *model.User) []*FileSender {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []*FileSender
	for _, fs := range l.senders {
		if sameUser(fs.User(), user) {
			out = append(out, fs)
		}
	}
	return out
}

// FileReceivers returns a copy of the receivers from user
func (l *List) FileReceivers(user *model.User) []*FileReceiver {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []*FileReceiver
	for _, fr := range l.receivers {
		if sameUser(fr.User(), user) {
			out = append(out, fr)
		}
	}
	return out
}

// AllFileSenders returns a copy of every sender
func (l *List) AllFileSenders() []*FileSender {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*FileSender(nil), l.senders...)
}

// AllFileReceivers returns a copy of every receiver
func (l *List) AllFileReceivers() []*FileReceiver {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*FileReceiver(nil), l.receivers...)
}

// FileTransfer finds a receiver or else a sender of fileName with user
func (l *List) FileTransfer(user *model.User, fileName string) FileTransfer {
	if fr := l.FileReceiver(user, fileName); fr != nil {
		return fr
	}
	if fs := l.FileSenderByName(user, fileName); fs != nil {
		return fs
	}
	return nil
}

// FileTransferByID finds a receiver or else a sender with user and id
func (l *List) FileTransferByID(user *model.User, id int) FileTransfer {
	if fr := l.FileReceiverByID(user, id); fr != nil {
		return fr
	}
	if fs := l.FileSenderByID(user, id); fs != nil {
		return fs
	}
	return nil
}

// ByID finds any transfer with the id, whoever the user is
func (l *List) ByID(id int) FileTransfer {
	if fr := l.findReceiver(func(fr *FileReceiver) bool { return fr.ID() == id }); fr != nil {
		return fr
	}
	if fs := l.findSender(func(fs *FileSender) bool { return fs.ID() == id }); fs != nil {
		return fs
	}
	return nil
}

// All returns every transfer, receivers first
func (l *List) All() []FileTransfer {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]FileTransfer, 0, len(l.receivers)+len(l.senders))
	for _, fr := range l.receivers {
		out = append(out, fr)
	}
	for _, fs := range l.senders {
		out = append(out, fs)
	}
	return out
}

func (l *List) findSender(match func(*FileSender) bool) *FileSender {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, fs := range l.senders {
		if match(fs) {
			return fs
		}
	}
	return nil
}

func (l *List) findReceiver(match func(*FileReceiver) bool) *FileReceiver {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, fr := range l.receivers {
		if match(fr) {
			return fr
		}
	}
	return nil
}

func sameUser(a, b *model.User) bool {
	if a == nil || b == nil {
		return false
	}
	return a.Code() == b.Code()
}
