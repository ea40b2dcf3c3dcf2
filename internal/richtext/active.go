package richtext

import "slices"

// cursorMoved recomputes the active tags: the growable tags covering both the
// character before and the character after the cursor.
func (d *Document) cursorMoved() {
	d.active = d.active[:0]
	if d.cursor == 0 {
		return
	}
	for _, t := range d.TagsAt(d.cursor - 1) {
		if t.CanGrow() && d.HasTag(d.cursor, t) {
			d.active = append(d.active, t)
		}
	}
}

// ActiveTags returns the tags the next typed character will get.
func (d *Document) ActiveTags() []*Tag {
	return slices.Clone(d.active)
}

// ToggleActiveTag flips the tag named name over the selection, or in the set
// of active tags when nothing is selected.
func (d *Document) ToggleActiveTag(name string) {
	t, ok := d.catalog.Lookup(name)
	if !ok {
		return
	}
	start, end, sel := d.SelectionBounds()
	if !sel {
		if i := slices.Index(d.active, t); i >= 0 {
			d.active = slices.Delete(d.active, i, i+1)
		} else {
			d.active = append(d.active, t)
		}
		return
	}
	start = d.skipBullet(start)
	if d.BeginsTag(start, t) || d.HasTag(start, t) {
		d.RemoveTag(t, start, end)
	} else {
		d.ApplyTag(t, start, end)
	}
}

// SetActiveTag applies the tag named name to the selection, or activates it.
func (d *Document) SetActiveTag(name string) {
	t, ok := d.catalog.Lookup(name)
	if !ok {
		return
	}
	start, end, sel := d.SelectionBounds()
	if !sel {
		if !slices.Contains(d.active, t) {
			d.active = append(d.active, t)
		}
		return
	}
	d.ApplyTag(t, d.skipBullet(start), end)
}

// RemoveActiveTag removes the tag named name from the selection, or
// deactivates it.
func (d *Document) RemoveActiveTag(name string) {
	t, ok := d.catalog.Lookup(name)
	if !ok {
		return
	}
	start, end, sel := d.SelectionBounds()
	if !sel {
		d.active = slices.DeleteFunc(d.active, func(a *Tag) bool { return a == t })
		return
	}
	d.RemoveTag(t, d.skipBullet(start), end)
}

// IsActiveTag reports whether the tag named name covers the selection start,
// or is active when nothing is selected.
func (d *Document) IsActiveTag(name string) bool {
	t, ok := d.catalog.Lookup(name)
	if !ok {
		return false
	}
	start, _, sel := d.SelectionBounds()
	if !sel {
		return slices.Contains(d.active, t)
	}
	return d.BeginsTag(start, t) || d.HasTag(start, t)
}

// skipBullet moves pos past the bullet when it sits inside one.
func (d *Document) skipBullet(pos int) int {
	if d.FindDepthTag(pos) != nil {
		return d.lineStartOf(pos) + 2
	}
	return pos
}
