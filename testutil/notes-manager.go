package testutil

import (
	"fmt"
	"testing"

	"golang.org/x/tools/go/expect"
)

// NotesManager collects the //@ notes of the main package of a program.
type NotesManager struct {
	notes   []*expect.Note
	loadRes LoadResult
}

func MakeNotesManager(t *testing.T, loadRes LoadResult) (n NotesManager) {
	t.Helper()
	n.loadRes = loadRes

	for _, file := range loadRes.MainPkg.Syntax {
		notes, err := expect.ExtractGo(loadRes.MainPkg.Fset, file)
		if err != nil {
			t.Fatal(err)
		}

		n.notes = append(n.notes, notes...)
	}
	return
}

func (n NotesManager) Notes() []*expect.Note {
	return n.notes
}

func (n NotesManager) FindNote(find func(*expect.Note) bool) (*expect.Note, bool) {
	for _, note := range n.notes {
		if find(note) {
			return note, true
		}
	}
	return nil, false
}

func (n NotesManager) String() (str string) {
	str = "Note manager found the following notes:\n\n"
	for _, note := range n.notes {
		pos := n.loadRes.MainPkg.Fset.Position(note.Pos)
		str += fmt.Sprintf("%s(%v) at position: %s\n", note.Name, note.Args, pos)
	}
	return
}

func idToStr(arg interface{}) string {
	switch arg := arg.(type) {
	case expect.Identifier:
		return string(arg)
	case string:
		return arg
	}
	return fmt.Sprint(arg)
}

// ExpectedVerdict reads the verdict(callstack[, summary]) note of a program.
// The first argument is the verdict under call-stack locations. The second,
// if present, is the verdict under summary locations, and defaults to the first.
func (n NotesManager) ExpectedVerdict(t *testing.T, summary bool) string {
	t.Helper()
	note, found := n.FindNote(func(note *expect.Note) bool {
		return note.Name == "verdict"
	})
	if !found || len(note.Args) == 0 {
		t.Fatal("program has no verdict note\n", n)
	}
	if summary && len(note.Args) > 1 {
		return idToStr(note.Args[1])
	}
	return idToStr(note.Args[0])
}
