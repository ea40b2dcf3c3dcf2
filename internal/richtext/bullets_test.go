package richtext

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bulletedDoc returns "Title\n" followed by lines, with a depth 0 bullet on
// each of them.
func bulletedDoc(t *testing.T, lines ...string) *Document {
	t.Helper()
	d := NewDocument(nil)
	d.Insert(0, "Title")
	for _, l := range lines {
		d.Insert(d.Len(), "\n")
		d.InsertBullet(d.Len(), 0, DirectionLTR)
		d.Insert(d.Len(), l)
	}
	return d
}

func TestAddNewLine_StartsListFromAsterisk(t *testing.T) {
	d := NewDocument(nil)
	d.Insert(0, "Title\n* one")
	d.PlaceCursor(d.Len())

	type inserted struct {
		offset, depth int
		dir           Direction
	}
	var got []inserted
	d.OnNewBulletInserted(func(offset, depth int, dir Direction) {
		got = append(got, inserted{offset, depth, dir})
	})
	var depthLines []int
	d.OnChangeTextDepth(func(line int, increase bool) {
		if increase {
			depthLines = append(depthLines, line)
		}
	})

	require.True(t, d.AddNewLine(false))
	assert.Equal(t, "Title\n• one\n• ", d.Text())
	assert.Equal(t, d.Len(), d.Cursor())
	assert.Equal(t, []inserted{{11, 0, DirectionLTR}}, got)
	assert.Equal(t, []int{1}, depthLines)

	for _, pos := range []int{6, 12} {
		tag := d.FindDepthTag(pos)
		require.NotNil(t, tag, "bullet at %d", pos)
		assert.Equal(t, 0, tag.Depth())
	}
	assert.True(t, d.IsBulletedListActive())
}

func TestAddNewLine_EmptyItemEndsList(t *testing.T) {
	d := bulletedDoc(t, "one", "")
	d.PlaceCursor(d.Len())

	require.True(t, d.AddNewLine(false))
	assert.Equal(t, "Title\n• one\n\n", d.Text())
	assert.False(t, d.IsBulletedListActive())
}

func TestAddNewLine_ContinuesList(t *testing.T) {
	d := bulletedDoc(t, "one")
	d.KeyTab()
	d.PlaceCursor(d.Len())

	d.KeyEnter(false)
	d.InsertAtCursor("two")
	assert.Equal(t, "Title\n∘ one\n∘ two", d.Text())
	tag := d.FindDepthTag(d.LineStart(2))
	require.NotNil(t, tag)
	assert.Equal(t, 1, tag.Depth())
}

func TestAddNewLine_TitleLineIsNeverBulleted(t *testing.T) {
	d := NewDocument(nil)
	d.Insert(0, "* title")
	d.PlaceCursor(d.Len())
	assert.False(t, d.AddNewLine(false))
	assert.Nil(t, d.FindDepthTag(0))
}

func TestAddNewLine_Disabled(t *testing.T) {
	d := NewDocument(nil)
	d.SetAutoBulletedLists(false)
	d.Insert(0, "Title\n* one")
	d.PlaceCursor(d.Len())
	assert.False(t, d.AddNewLine(false))
}

func TestAddNewLine_SoftBreakStaysInItem(t *testing.T) {
	d := bulletedDoc(t, "one")
	d.PlaceCursor(d.Len())

	require.True(t, d.AddNewLine(true))
	assert.Equal(t, "Title\n• one\u2028 ", d.Text())
	assert.Equal(t, 2, d.LineCount())
	assert.Equal(t, " ", d.Selection())
}

func TestTabs_ChangeDepthAndGlyph(t *testing.T) {
	d := bulletedDoc(t, "one")
	d.PlaceCursor(d.Len())
	ls := d.LineStart(1)

	d.KeyTab()
	assert.Equal(t, 1, d.FindDepthTag(ls).Depth())
	assert.Equal(t, '∘', d.CharAt(ls))

	d.KeyTab()
	assert.Equal(t, '‣', d.CharAt(ls))

	d.KeyShiftTab()
	d.KeyShiftTab()
	assert.Equal(t, 0, d.FindDepthTag(ls).Depth())
	assert.Equal(t, '•', d.CharAt(ls))

	d.KeyShiftTab()
	assert.Nil(t, d.FindDepthTag(ls))
	assert.Equal(t, "Title\none", d.Text())
}

func TestKeyTab_OffListInsertsTab(t *testing.T) {
	d := NewDocument(nil)
	d.Insert(0, "Title\nx")
	d.PlaceCursor(d.Len())
	d.KeyTab()
	assert.Equal(t, "Title\nx\t", d.Text())
}

func TestKeyBackspace_AfterBulletRemovesIt(t *testing.T) {
	d := bulletedDoc(t, "one")
	d.PlaceCursor(d.LineStart(1) + 2)
	d.KeyBackspace()
	assert.Equal(t, "Title\none", d.Text())
	assert.Nil(t, d.FindDepthTag(d.LineStart(1)))
}

func TestKeyBackspace_Plain(t *testing.T) {
	d := bulletedDoc(t, "one")
	d.PlaceCursor(d.Len())
	d.KeyBackspace()
	assert.Equal(t, "Title\n• on", d.Text())
}

func TestKeyDelete_JoinsBulletedLine(t *testing.T) {
	d := NewDocument(nil)
	d.Insert(0, "Title\none\ntwo")
	d.InsertBullet(10, 0, DirectionLTR)
	require.Equal(t, "Title\none\n• two", d.Text())

	d.PlaceCursor(9)
	d.KeyDelete()
	assert.Equal(t, "Title\nonetwo", d.Text())
	assert.Nil(t, d.FindDepthTag(9))
}

func TestCheckSelection_MovesCursorOutOfBullet(t *testing.T) {
	d := bulletedDoc(t, "one")
	ls := d.LineStart(1)
	d.PlaceCursor(ls)
	d.CheckSelection()
	assert.Equal(t, ls+2, d.Cursor())

	d.SelectRange(ls+1, d.Len())
	d.CheckSelection()
	start, end, _ := d.SelectionBounds()
	assert.Equal(t, ls+2, start)
	assert.Equal(t, d.Len(), end)
}

func TestApplyTag_SkipsBullets(t *testing.T) {
	d := bulletedDoc(t, "one", "two")
	bold := lookup(t, d, TagBold)
	d.ApplyTag(bold, 6, d.Len())
	assert.Equal(t, []Range{{8, 12}, {14, 17}}, d.TagRanges(bold))
}

func TestApplyTag_DepthTagsAreExclusive(t *testing.T) {
	d := bulletedDoc(t, "one")
	ls := d.LineStart(1)
	deeper := d.Catalog().DepthTag(1, DirectionLTR)
	d.ApplyTag(deeper, ls, ls+2)

	var depths []int
	for _, tag := range d.TagsAt(ls) {
		if tag.IsDepth() {
			depths = append(depths, tag.Depth())
		}
	}
	assert.Equal(t, []int{1}, depths)
}

func TestIncreaseDepth_RightToLeft(t *testing.T) {
	d := NewDocument(nil)
	d.Insert(0, "Title\nשלום")
	d.PlaceCursor(d.Len())
	d.IncreaseDepth(d.Cursor())

	tag := d.FindDepthTag(6)
	require.NotNil(t, tag)
	assert.Equal(t, DirectionRTL, tag.Direction())
}

func TestToggleSelectionBullets(t *testing.T) {
	d := NewDocument(nil)
	d.Insert(0, "Title\none\ntwo")
	d.SelectRange(d.LineStart(1), d.Len())

	d.ToggleSelectionBullets()
	assert.Equal(t, "Title\n• one\n• two", d.Text())

	d.SelectRange(d.LineStart(1), d.Len())
	d.ToggleSelectionBullets()
	assert.Equal(t, "Title\none\ntwo", d.Text())
}

func TestChangeCursorDepthDirectional(t *testing.T) {
	d := bulletedDoc(t, "one")
	d.PlaceCursor(d.Len())
	d.ChangeCursorDepthDirectional(true)
	assert.Equal(t, 1, d.FindDepthTag(6).Depth())
	d.ChangeCursorDepthDirectional(false)
	assert.Equal(t, 0, d.FindDepthTag(6).Depth())
}
