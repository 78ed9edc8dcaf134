package decoder

import (
	"fmt"

	"github.com/Faultbox/packedit/pkg/schema"
)

// locate returns the list holding the field at path and the field's index in it.
func (s *Session) locate(path []int) (*[]schema.Field, int, error) {
	if len(path) == 0 {
		return nil, 0, ErrInvalidPath
	}
	list := &s.fields
	for depth, idx := range path {
		if idx < 0 || idx >= len(*list) {
			return nil, 0, fmt.Errorf("%w: %v", ErrInvalidPath, path)
		}
		if depth == len(path)-1 {
			return list, idx, nil
		}
		f := &(*list)[idx]
		if !f.Type.IsSequence() {
			return nil, 0, fmt.Errorf("%w: %v descends into %s", ErrInvalidPath, path, f.Kind())
		}
		list = &f.Type.Fields
	}
	return nil, 0, ErrInvalidPath
}

// Field returns a copy of the field at path.
func (s *Session) Field(path []int) (schema.Field, error) {
	list, idx, err := s.locate(path)
	if err != nil {
		return schema.Field{}, err
	}
	return (*list)[idx].Clone(), nil
}

// MoveUp swaps the field with its previous sibling.
func (s *Session) MoveUp(path []int) error {
	list, idx, err := s.locate(path)
	if err != nil {
		return err
	}
	if idx == 0 {
		return ErrCannotMove
	}
	(*list)[idx-1], (*list)[idx] = (*list)[idx], (*list)[idx-1]
	s.Replay()
	return nil
}

// MoveDown swaps the field with its next sibling.
func (s *Session) MoveDown(path []int) error {
	list, idx, err := s.locate(path)
	if err != nil {
		return err
	}
	if idx == len(*list)-1 {
		return ErrCannotMove
	}
	(*list)[idx+1], (*list)[idx] = (*list)[idx], (*list)[idx+1]
	s.Replay()
	return nil
}

// MoveLeft takes a nested field out of its sequence and places it right after that sequence.
func (s *Session) MoveLeft(path []int) error {
	if len(path) < 2 {
		return ErrCannotMove
	}
	list, idx, err := s.locate(path)
	if err != nil {
		return err
	}
	parentList, parentIdx, err := s.locate(path[:len(path)-1])
	if err != nil {
		return err
	}

	f := (*list)[idx]
	*list = append((*list)[:idx], (*list)[idx+1:]...)
	*parentList = insertField(*parentList, parentIdx+1, f)
	s.Replay()
	return nil
}

// MoveRight nests the field at the end of its previous sibling, which must be a sequence.
func (s *Session) MoveRight(path []int) error {
	list, idx, err := s.locate(path)
	if err != nil {
		return err
	}
	if idx == 0 || !(*list)[idx-1].Type.IsSequence() {
		return ErrCannotMove
	}

	f := (*list)[idx]
	prev := &(*list)[idx-1]
	prev.Type.Fields = append(prev.Type.Fields, f)
	*list = append((*list)[:idx], (*list)[idx+1:]...)
	s.Replay()
	return nil
}

// Delete removes the field at path, including any nested fields.
func (s *Session) Delete(path []int) error {
	list, idx, err := s.locate(path)
	if err != nil {
		return err
	}
	*list = append((*list)[:idx], (*list)[idx+1:]...)
	s.Replay()
	return nil
}

// Rename changes the name of the field at path.
func (s *Session) Rename(path []int, name string) error {
	list, idx, err := s.locate(path)
	if err != nil {
		return err
	}
	(*list)[idx].Name = name
	s.Replay()
	return nil
}

// SetField replaces the descriptor at path. When the kind stays a sequence and f
// carries no nested fields, the existing nested fields are kept.
func (s *Session) SetField(path []int, f schema.Field) error {
	list, idx, err := s.locate(path)
	if err != nil {
		return err
	}
	old := (*list)[idx]
	f = f.Clone()
	if f.Type.IsSequence() && old.Type.IsSequence() && len(f.Type.Fields) == 0 {
		f.Type.Fields = old.Type.Fields
	}
	if !f.Type.IsSequence() {
		f.Type.Fields = nil
	}
	(*list)[idx] = f
	s.Replay()
	return nil
}

func insertField(list []schema.Field, at int, f schema.Field) []schema.Field {
	list = append(list, schema.Field{})
	copy(list[at+1:], list[at:])
	list[at] = f
	return list
}
