package corpus

// Token is one position of one unroll path through a sentence's
// dependency tree.
type Token struct {
	Position int     // token position within the sentence
	Word     int     // vocabulary index, -1 if out of vocabulary
	Discount float64 // repeat-visit weight in [0, 1]
	Label    int     // dependency label index, -1 if unknown
}

// BookUnrolls holds one book as sentences, each linearized into one or
// more unroll paths of tokens, and carries the iteration cursor used by
// the training and evaluation loops.
type BookUnrolls struct {
	sentences [][][]Token // sentence -> unroll -> tokens

	idxSentence int
	idxUnroll   int
	idxToken    int
}

// NewBookFromTokens builds a book from in-memory unroll sequences.
// Empty unrolls are dropped; empty sentences are kept so that sentence
// indices stay aligned with external label files.
func NewBookFromTokens(sentences [][][]Token) *BookUnrolls {
	b := &BookUnrolls{sentences: make([][][]Token, 0, len(sentences))}
	for _, sentence := range sentences {
		unrolls := make([][]Token, 0, len(sentence))
		for _, unroll := range sentence {
			if len(unroll) > 0 {
				unrolls = append(unrolls, unroll)
			}
		}
		b.sentences = append(b.sentences, unrolls)
	}
	return b
}

func (b *BookUnrolls) NumSentences() int {
	return len(b.sentences)
}

func (b *BookUnrolls) NumUnrolls(idxSentence int) int {
	if idxSentence < 0 || idxSentence >= len(b.sentences) {
		return 0
	}
	return len(b.sentences[idxSentence])
}

// ResetSentence rewinds the cursor to the first token of the first
// unroll of the first sentence.
func (b *BookUnrolls) ResetSentence() {
	b.idxSentence = 0
	b.idxUnroll = 0
	b.idxToken = 0
}

// NextSentence advances to the next sentence and rewinds the unroll and
// token cursors.
func (b *BookUnrolls) NextSentence() {
	b.idxSentence++
	b.idxUnroll = 0
	b.idxToken = 0
}

// ResetUnroll rewinds to the first unroll of the current sentence.
func (b *BookUnrolls) ResetUnroll() {
	b.idxUnroll = 0
	b.idxToken = 0
}

// NextUnrollInSentence advances to the next unroll path of the current
// sentence and rewinds the token cursor.
func (b *BookUnrolls) NextUnrollInSentence() {
	b.idxUnroll++
	b.idxToken = 0
}

func (b *BookUnrolls) currentToken() *Token {
	if b.idxSentence >= len(b.sentences) {
		return nil
	}
	unrolls := b.sentences[b.idxSentence]
	if b.idxUnroll >= len(unrolls) {
		return nil
	}
	tokens := unrolls[b.idxUnroll]
	if b.idxToken >= len(tokens) {
		return nil
	}
	return &tokens[b.idxToken]
}

// CurrentTokenNumberInSentence returns the sentence position of the
// token under the cursor, or -1 past the end of the unroll.
func (b *BookUnrolls) CurrentTokenNumberInSentence() int {
	if t := b.currentToken(); t != nil {
		return t.Position
	}
	return -1
}

// CurrentTokenWord returns the vocabulary index of the token under the
// cursor, or -1 for out-of-vocabulary tokens.
func (b *BookUnrolls) CurrentTokenWord() int {
	if t := b.currentToken(); t != nil {
		return t.Word
	}
	return -1
}

// CurrentTokenDiscount returns the learning-rate discount of the token
// under the cursor.
func (b *BookUnrolls) CurrentTokenDiscount() float64 {
	if t := b.currentToken(); t != nil {
		return t.Discount
	}
	return 0
}

// CurrentTokenLabel returns the dependency label index of the token
// under the cursor.
func (b *BookUnrolls) CurrentTokenLabel() int {
	if t := b.currentToken(); t != nil {
		return t.Label
	}
	return -1
}

// NextTokenInUnroll advances the token cursor and returns the new
// token's position in the sentence, or -1 at the end of the unroll.
func (b *BookUnrolls) NextTokenInUnroll() int {
	b.idxToken++
	return b.CurrentTokenNumberInSentence()
}
