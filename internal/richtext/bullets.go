package richtext

// Bullet glyphs by depth, cycling.
var indentBullets = [...]rune{'\u2022', '\u2218', '\u2023'}

// lineSeparator is the soft line break kept inside a list item.
const lineSeparator = '\u2028'

func bulletText(depth int) string {
	return string(indentBullets[depth%len(indentBullets)]) + " "
}

// IsBulletedListActive reports whether the cursor's line is a list item.
func (d *Document) IsBulletedListActive() bool {
	return d.FindDepthTag(d.lineStartOf(d.cursor)) != nil
}

// CanMakeBulletedList reports whether the cursor's line may hold a bullet.
// The first line is the title and never does.
func (d *Document) CanMakeBulletedList() bool {
	return d.LineOf(d.cursor) != 0
}

// InsertBullet inserts the bullet for depth at pos.
func (d *Document) InsertBullet(pos, depth int, dir Direction) {
	pos = d.clamp(pos)
	text := []rune(bulletText(depth))
	d.insert(pos, text, false)
	d.ApplyTag(d.catalog.DepthTag(depth, dir), pos, pos+len(text))
}

// RemoveBullet deletes the bullet of pos's line together with the preceding
// line break.
func (d *Document) RemoveBullet(pos int) {
	ls := d.lineStartOf(pos)
	end := ls + 2
	if d.lineEnd(ls)-ls < 2 {
		end = ls + 1
	}
	start := ls
	if ls > 0 {
		start = ls - 1
	}
	d.Delete(start, end)
}

// ChangeBulletDirection retags the bullet of pos's line for dir. Neutral
// directions leave it alone.
func (d *Document) ChangeBulletDirection(pos int, dir Direction) {
	ls := d.lineStartOf(pos)
	tag := d.FindDepthTag(ls)
	if tag == nil || dir == DirectionNeutral || tag.Direction() == dir {
		return
	}
	d.RemoveAllTags(ls, ls+2)
	d.ApplyTag(d.catalog.DepthTag(tag.Depth(), dir), ls, ls+2)
}

// IncreaseDepth bullets pos's line, or indents its bullet one level.
func (d *Document) IncreaseDepth(pos int) {
	if !d.CanMakeBulletedList() {
		return
	}
	ls := d.lineStartOf(pos)
	cur := d.FindDepthTag(ls)
	if cur == nil {
		dir := DirectionLTR
		if p := d.firstNonSpace(ls); p < d.lineEnd(ls) {
			if cd := charDirection(d.text[p]); cd != DirectionNeutral {
				dir = cd
			}
		}
		d.InsertBullet(ls, 0, dir)
	} else {
		d.Delete(ls, ls+2)
		d.InsertBullet(ls, cur.Depth()+1, cur.Direction())
	}
	d.emitDepthChanged(d.LineOf(ls), true)
}

// DecreaseDepth outdents pos's bullet one level; a depth 0 bullet is removed.
func (d *Document) DecreaseDepth(pos int) {
	if !d.CanMakeBulletedList() {
		return
	}
	ls := d.lineStartOf(pos)
	end := ls + 2
	if d.lineEnd(ls)-ls < 2 {
		end = ls
	}
	if cur := d.FindDepthTag(ls); cur != nil {
		d.Delete(ls, end)
		if cur.Depth() > 0 {
			d.InsertBullet(ls, cur.Depth()-1, cur.Direction())
		}
	}
	d.emitDepthChanged(d.LineOf(ls), false)
}

func (d *Document) firstNonSpace(ls int) int {
	p := ls
	for p < len(d.text) && (d.text[p] == ' ' || d.text[p] == '\t') {
		p++
	}
	return p
}

// lineNeedsBullet reports whether the line starting at ls opens with "* " or
// "- " after optional spaces.
func (d *Document) lineNeedsBullet(ls int) bool {
	p := ls
	for p < len(d.text) && d.text[p] == ' ' {
		p++
	}
	if c := d.CharAt(p); c != '*' && c != '-' {
		return false
	}
	return d.CharAt(p+1) == ' '
}

func (d *Document) emitDepthChanged(line int, increase bool) {
	for _, fn := range d.depthChanged {
		fn(line, increase)
	}
}

func (d *Document) emitBulletInserted(offset, depth int, dir Direction) {
	for _, fn := range d.bulletInserted {
		fn(offset, depth, dir)
	}
}

// AddNewLine handles Enter on a list line or a line starting with "* ". It
// reports false when the default newline insertion should happen.
func (d *Document) AddNewLine(softBreak bool) bool {
	if !d.CanMakeBulletedList() || !d.autoBullets {
		return false
	}
	ls := d.lineStartOf(d.cursor)
	prev := d.FindDepthTag(ls)

	if prev != nil && softBreak {
		atEnd := d.endsLine(d.cursor)
		d.Insert(d.cursor, string(lineSeparator))
		if atEnd {
			d.Insert(d.cursor, " ")
			d.bound = d.cursor - 1
		}
		return true
	}

	if prev != nil {
		if d.endsLine(ls+2) || d.LineOffset(d.cursor) < 3 {
			// Enter on an empty item ends the list.
			end := ls
			if d.lineEnd(ls)-ls >= 2 {
				end = ls + 2
			}
			d.Delete(ls, end)
			d.Insert(d.cursor, "\n")
			return true
		}

		if d.cursor > 0 && d.text[d.cursor-1] == lineSeparator {
			d.Delete(d.cursor-1, d.cursor)
		}
		offset := d.cursor
		d.Insert(d.cursor, "\n")
		start := d.lineStartOf(d.cursor)
		dir := prev.Direction()
		if c := d.CharAt(start); c != 0 && c != '\n' {
			if cd := charDirection(c); cd != DirectionNeutral {
				dir = cd
			}
		}
		d.InsertBullet(start, prev.Depth(), dir)
		d.emitBulletInserted(offset, prev.Depth(), dir)
		return true
	}

	if d.lineNeedsBullet(ls) {
		end := d.firstNonSpace(ls) + 2
		dir := DirectionLTR
		if c := d.CharAt(end); c != 0 && c != '\n' {
			if cd := charDirection(c); cd != DirectionNeutral {
				dir = cd
			}
		}
		d.Delete(ls, end)
		d.IncreaseDepth(ls)
		if d.endsLine(ls + 2) {
			return true
		}
		offset := d.cursor
		d.Insert(d.cursor, "\n")
		d.InsertBullet(d.lineStartOf(d.cursor), 0, dir)
		d.emitBulletInserted(offset, 0, dir)
		return true
	}
	return false
}

// AddTab indents the current list line. It reports false off a list.
func (d *Document) AddTab() bool {
	if !d.IsBulletedListActive() {
		return false
	}
	d.IncreaseDepth(d.cursor)
	return true
}

// RemoveTab outdents the current list line. It reports false off a list.
func (d *Document) RemoveTab() bool {
	if !d.IsBulletedListActive() {
		return false
	}
	d.DecreaseDepth(d.cursor)
	return true
}

// DeleteKeyHandler handles the Delete key around bullets. It reports false
// when the default deletion should happen.
func (d *Document) DeleteKeyHandler() bool {
	start, end, sel := d.SelectionBounds()
	if sel {
		start, end = d.AugmentSelection(start, end)
		d.Delete(start, end)
		return true
	}
	if d.endsLine(start) {
		if start < len(d.text) && d.FindDepthTag(start+1) != nil {
			d.Delete(start, start+3)
			return true
		}
		return false
	}
	next := start
	if d.LineOffset(start) != 0 {
		next++
	}
	if d.FindDepthTag(start) != nil || d.FindDepthTag(next) != nil {
		d.DecreaseDepth(start)
		return true
	}
	return false
}

// BackspaceKeyHandler handles Backspace around bullets and soft breaks. It
// reports false when the default deletion should happen.
func (d *Document) BackspaceKeyHandler() bool {
	start, end, sel := d.SelectionBounds()
	if sel {
		start, end = d.AugmentSelection(start, end)
		d.Delete(start, end)
		return true
	}
	prev := start
	if d.LineOffset(prev) > 0 {
		prev--
	}
	if d.FindDepthTag(start) != nil || d.FindDepthTag(prev) != nil {
		d.DecreaseDepth(start)
		return true
	}
	// Take the soft break along with the padding space after it.
	if start >= 2 && d.text[start-2] == lineSeparator {
		d.Delete(start-2, start-1)
	}
	return false
}

// CheckSelection keeps the cursor and the selection out of bullets.
func (d *Document) CheckSelection() {
	start, end, sel := d.SelectionBounds()
	if sel {
		d.AugmentSelection(start, end)
		return
	}
	if d.LineOffset(start) <= 1 && d.FindDepthTag(start) != nil {
		d.PlaceCursor(d.lineStartOf(start) + 2)
	}
}

// AugmentSelection moves selection ends that fall inside a bullet to just
// after it, selects the result and returns it.
func (d *Document) AugmentSelection(start, end int) (int, int) {
	startDepth := d.FindDepthTag(start)
	endDepth := d.FindDepthTag(end)
	insideEndDepth := d.FindDepthTag(end - 1)

	if startDepth != nil {
		start = d.lineStartOf(start) + 2
	}
	if insideEndDepth != nil || endDepth != nil {
		end = d.lineStartOf(end) + 2
	}
	end = max(start, end)
	d.SelectRange(start, end)
	return start, end
}

// ToggleSelectionBullets bullets every selected line, or removes the bullets
// when the first selected line already has one.
func (d *Document) ToggleSelectionBullets() {
	start, end, _ := d.SelectionBounds()
	first, last := d.LineOf(start), d.LineOf(end)
	on := d.FindDepthTag(d.LineStart(first)) == nil
	for line := first; line <= last; line++ {
		ls := d.LineStart(line)
		has := d.FindDepthTag(ls) != nil
		switch {
		case on && !has:
			d.IncreaseDepth(ls)
		case !on && has:
			d.Delete(ls, ls+2)
		}
	}
}

// ChangeCursorDepth indents or outdents every selected line.
func (d *Document) ChangeCursorDepth(increase bool) {
	start, end, _ := d.SelectionBounds()
	for line := d.LineOf(start); line <= d.LineOf(end); line++ {
		ls := d.LineStart(line)
		if increase {
			d.IncreaseDepth(ls)
		} else {
			d.DecreaseDepth(ls)
		}
	}
}

// ChangeCursorDepthDirectional indents for a key pointing into the line's
// reading direction; on right-to-left lines the meaning of right flips.
func (d *Document) ChangeCursorDepthDirectional(right bool) {
	start, _, _ := d.SelectionBounds()
	ls := d.lineStartOf(start)
	var rtl bool
	next := ls
	if tag := d.FindDepthTag(ls); tag != nil {
		rtl = tag.Direction() == DirectionRTL
		next = ls + 2
	} else {
		next = d.firstNonSpace(ls)
		rtl = next < len(d.text) && charDirection(d.text[next]) == DirectionRTL
	}
	increase := right
	if rtl && !d.endsLine(next) {
		increase = !right
	}
	d.ChangeCursorDepth(increase)
}

// KeyEnter handles Enter, with Shift when softBreak is set.
func (d *Document) KeyEnter(softBreak bool) {
	if !d.AddNewLine(softBreak) {
		d.InsertAtCursor("\n")
	}
}

// KeyTab handles Tab.
func (d *Document) KeyTab() {
	if !d.AddTab() {
		d.InsertAtCursor("\t")
	}
}

// KeyShiftTab handles Shift+Tab.
func (d *Document) KeyShiftTab() {
	d.RemoveTab()
}

// KeyDelete handles the Delete key.
func (d *Document) KeyDelete() {
	if d.DeleteKeyHandler() {
		return
	}
	start, end, sel := d.SelectionBounds()
	if !sel {
		end = start + 1
	}
	d.Delete(start, end)
}

// KeyBackspace handles Backspace.
func (d *Document) KeyBackspace() {
	if d.BackspaceKeyHandler() {
		return
	}
	start, end, sel := d.SelectionBounds()
	if !sel {
		start = end - 1
	}
	d.Delete(start, end)
}
