package posts

import "sync"

// postList is the single owner of the local post sequence.
// Each method is one indivisible step; steps of different operations may
// interleave between calls, never within one.
type postList struct {
	onChange func()
	posts    []Post
	mu       sync.Mutex
}

func newPostList(onChange func()) *postList {
	return &postList{onChange: onChange}
}

// snapshot returns a copy of the current sequence.
func (l *postList) snapshot() []Post {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Post, len(l.posts))
	copy(out, l.posts)
	return out
}

func (l *postList) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.posts)
}

// at returns the post at index.
func (l *postList) at(index int) (Post, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if index < 0 || index >= len(l.posts) {
		return Post{}, false
	}
	return l.posts[index], true
}

// replaceAll swaps in a whole new sequence.
func (l *postList) replaceAll(posts []Post) {
	l.mu.Lock()
	l.posts = posts
	l.mu.Unlock()

	l.changed()
}

func (l *postList) append(p Post) {
	l.mu.Lock()
	l.posts = append(l.posts, p)
	l.mu.Unlock()

	l.changed()
}

// removeID removes every entry with the given id and returns the first one removed.
func (l *postList) removeID(id string) (Post, bool) {
	l.mu.Lock()
	var removed Post
	found := false
	kept := make([]Post, 0, len(l.posts))
	for _, p := range l.posts {
		if p.ID == id {
			if !found {
				removed = p
				found = true
			}
			continue
		}
		kept = append(kept, p)
	}
	l.posts = kept
	l.mu.Unlock()

	if found {
		l.changed()
	}
	return removed, found
}

// referencesKey reports whether any entry uses key as its attachment.
func (l *postList) referencesKey(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, p := range l.posts {
		if p.Attachment.Key() == key {
			return true
		}
	}
	return false
}

// replaceByID puts p where the entry with p.ID is, preferring hint when it
// still holds that id. Returns false if the id is no longer in the list.
func (l *postList) replaceByID(hint int, p Post) bool {
	l.mu.Lock()
	idx := -1
	if hint >= 0 && hint < len(l.posts) && l.posts[hint].ID == p.ID {
		idx = hint
	} else {
		for i := range l.posts {
			if l.posts[i].ID == p.ID {
				idx = i
				break
			}
		}
	}
	if idx >= 0 {
		l.posts[idx] = p
	}
	l.mu.Unlock()

	if idx < 0 {
		return false
	}
	l.changed()
	return true
}

func (l *postList) changed() {
	if l.onChange != nil {
		l.onChange()
	}
}
