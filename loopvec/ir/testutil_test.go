package ir

// countLoop is the canonical test loop:
//
//	for (i = init; i < bound; i += step) {}
//	return i
type countLoop struct {
	f      *Func
	entry  *Block
	header *Block
	body   *Block
	exit   *Block
	iv     *Value
	next   *Value
}

func buildCountLoop(init, bound, step int64) *countLoop {
	f := NewFunc("count", 0)
	entry := f.NewBlock(BlockPlain, "entry")
	header := f.NewBlock(BlockIf, "loop")
	body := f.NewBlock(BlockPlain, "body")
	exit := f.NewBlock(BlockRet, "exit")

	cInit := entry.Const(init)
	cBound := entry.Const(bound)

	iv := header.NewValue(OpPhi, Scalar)
	cond := header.NewValue(OpCmpLT, Scalar, iv, cBound)
	header.Control = cond

	cStep := body.Const(step)
	next := body.NewValue(OpAdd, Scalar, iv, cStep)

	entry.AddEdge(header)
	header.AddEdge(body)
	header.AddEdge(exit)
	body.AddEdge(header)
	iv.Args = []*Value{cInit, next}
	exit.Control = iv

	return &countLoop{f: f, entry: entry, header: header, body: body, exit: exit, iv: iv, next: next}
}

// buildDiamond is entry branching over its first argument into two arms
// that rejoin and return a phi of two constants.
func buildDiamond() (*Func, *Block, *Block, *Block, *Block) {
	f := NewFunc("diamond", 1)
	entry := f.NewBlock(BlockIf, "entry")
	left := f.NewBlock(BlockPlain, "left")
	right := f.NewBlock(BlockPlain, "right")
	merge := f.NewBlock(BlockRet, "merge")

	cond := entry.NewValue(OpArg, Scalar)
	cond.AuxInt = 0
	entry.Control = cond
	lv := left.Const(10)
	rv := right.Const(20)

	entry.AddEdge(left)
	entry.AddEdge(right)
	left.AddEdge(merge)
	right.AddEdge(merge)

	phi := merge.NewValue(OpPhi, Scalar, lv, rv)
	merge.Control = phi
	return f, entry, left, right, merge
}

func loopOf(f *Func) (*LoopInfo, *Loop) {
	li := BuildLoopInfo(f, BuildDomTree(f))
	if len(li.TopLevel) == 0 {
		return li, nil
	}
	return li, li.TopLevel[0]
}
