package apkzip

import (
	"github.com/marmos91/adbpush/internal/adberrors"
)

// bitReader reads a raw DEFLATE bit stream: LSB-first within each byte,
// per RFC 1951 §3.1.1.
type bitReader struct {
	data    []byte
	bytePos int
	bitPos  uint
}

func (r *bitReader) readBit() (uint32, error) {
	if r.bytePos >= len(r.data) {
		return 0, adberrors.New(adberrors.ProtocolError, "deflate: unexpected end of stream")
	}
	bit := (uint32(r.data[r.bytePos]) >> r.bitPos) & 1
	r.bitPos++
	if r.bitPos == 8 {
		r.bitPos = 0
		r.bytePos++
	}
	return bit, nil
}

// readBits reads n bits (n <= 24) and returns them as an integer with the
// first-read bit in the least-significant position, per DEFLATE's
// bit-packing convention for Huffman-decoded extra bits and stored-block
// lengths.
func (r *bitReader) readBits(n int) (uint32, error) {
	var value uint32
	for i := 0; i < n; i++ {
		bit, err := r.readBit()
		if err != nil {
			return 0, err
		}
		value |= bit << uint(i)
	}
	return value, nil
}

// alignToByte discards any partial byte, used before a stored (method 0
// within DEFLATE, distinct from ZIP's own "stored" method) block.
func (r *bitReader) alignToByte() {
	if r.bitPos != 0 {
		r.bitPos = 0
		r.bytePos++
	}
}

// huffmanTree is a canonical Huffman decoder built from a list of code
// lengths, represented as a simple binary trie: fast enough for icon-sized
// payloads and far simpler to get right than a table-driven decoder.
type huffmanTree struct {
	// children[node][bit] is the next node index, or -1 if absent.
	// A leaf stores its symbol in symbols[node]; symbols[node] == -1 for
	// internal nodes.
	children [][2]int
	symbols  []int
}

func newHuffmanTree(lengths []int) *huffmanTree {
	t := &huffmanTree{children: [][2]int{{-1, -1}}, symbols: []int{-1}}

	maxLen := 0
	for _, l := range lengths {
		if l > maxLen {
			maxLen = l
		}
	}
	if maxLen == 0 {
		return t
	}

	// Canonical Huffman code assignment per RFC 1951 §3.2.2.
	blCount := make([]int, maxLen+1)
	for _, l := range lengths {
		if l > 0 {
			blCount[l]++
		}
	}

	code := 0
	nextCode := make([]int, maxLen+1)
	for bits := 1; bits <= maxLen; bits++ {
		code = (code + blCount[bits-1]) << 1
		nextCode[bits] = code
	}

	for symbol, length := range lengths {
		if length == 0 {
			continue
		}
		c := nextCode[length]
		nextCode[length]++
		t.insert(c, length, symbol)
	}

	return t
}

// insert walks code's bits from most-significant to least (matching
// DEFLATE's convention that Huffman codes are packed MSB-first, the
// opposite of every other field in the format), creating nodes as needed.
func (t *huffmanTree) insert(code, length, symbol int) {
	node := 0
	for i := length - 1; i >= 0; i-- {
		bit := (code >> uint(i)) & 1
		next := t.children[node][bit]
		if next == -1 {
			t.children = append(t.children, [2]int{-1, -1})
			t.symbols = append(t.symbols, -1)
			next = len(t.children) - 1
			t.children[node][bit] = next
		}
		node = next
	}
	t.symbols[node] = symbol
}

// decode walks r one bit at a time from the tree's root until it reaches a
// leaf, returning that leaf's symbol.
func (t *huffmanTree) decode(r *bitReader) (int, error) {
	node := 0
	for {
		if t.symbols[node] != -1 && t.children[node][0] == -1 && t.children[node][1] == -1 {
			return t.symbols[node], nil
		}
		bit, err := r.readBit()
		if err != nil {
			return 0, err
		}
		next := t.children[node][bit]
		if next == -1 {
			return 0, adberrors.New(adberrors.ProtocolError, "deflate: invalid huffman code")
		}
		node = next
	}
}

// lengthBase and lengthExtraBits implement RFC 1951 table for length
// codes 257-285.
var lengthBase = []int{
	3, 4, 5, 6, 7, 8, 9, 10, 11, 13, 15, 17, 19, 23, 27, 31, 35, 43, 51, 59,
	67, 83, 99, 115, 131, 163, 195, 227, 258,
}
var lengthExtraBits = []int{
	0, 0, 0, 0, 0, 0, 0, 0, 1, 1, 1, 1, 2, 2, 2, 2, 3, 3, 3, 3,
	4, 4, 4, 4, 5, 5, 5, 5, 0,
}

// distBase and distExtraBits implement RFC 1951 table for distance codes 0-29.
var distBase = []int{
	1, 2, 3, 4, 5, 7, 9, 13, 17, 25, 33, 49, 65, 97, 129, 193, 257, 385,
	513, 769, 1025, 1537, 2049, 3073, 4097, 6145, 8193, 12289, 16385, 24577,
}
var distExtraBits = []int{
	0, 0, 0, 0, 1, 1, 2, 2, 3, 3, 4, 4, 5, 5, 6, 6, 7, 7, 8, 8, 9, 9, 10,
	10, 11, 11, 12, 12, 13, 13,
}

// codeLengthOrder is the order in which the 19 code-length alphabet's own
// code lengths are transmitted for a dynamic Huffman block.
var codeLengthOrder = []int{16, 17, 18, 0, 8, 7, 9, 6, 10, 5, 11, 4, 12, 3, 13, 2, 14, 1, 15}

func fixedLiteralLengths() []int {
	lengths := make([]int, 288)
	for i := 0; i < 144; i++ {
		lengths[i] = 8
	}
	for i := 144; i < 256; i++ {
		lengths[i] = 9
	}
	for i := 256; i < 280; i++ {
		lengths[i] = 7
	}
	for i := 280; i < 288; i++ {
		lengths[i] = 8
	}
	return lengths
}

func fixedDistanceLengths() []int {
	lengths := make([]int, 30)
	for i := range lengths {
		lengths[i] = 5
	}
	return lengths
}

// inflateRaw decompresses a raw (no zlib wrapper) DEFLATE stream. outSize
// is the known uncompressed size, from the ZIP central directory; output
// is allocated to exactly that size and filled in place.
func inflateRaw(compressed []byte, outSize int) ([]byte, error) {
	r := &bitReader{data: compressed}
	out := make([]byte, 0, outSize)

	for {
		final, err := r.readBit()
		if err != nil {
			return nil, err
		}
		blockType, err := r.readBits(2)
		if err != nil {
			return nil, err
		}

		switch blockType {
		case 0: // stored
			out, err = inflateStoredBlock(r, out)
		case 1: // fixed Huffman
			out, err = inflateHuffmanBlock(r, out, newHuffmanTree(fixedLiteralLengths()), newHuffmanTree(fixedDistanceLengths()))
		case 2: // dynamic Huffman
			var litTree, distTree *huffmanTree
			litTree, distTree, err = readDynamicTrees(r)
			if err == nil {
				out, err = inflateHuffmanBlock(r, out, litTree, distTree)
			}
		default:
			err = adberrors.New(adberrors.ProtocolError, "deflate: reserved block type")
		}
		if err != nil {
			return nil, err
		}

		if final == 1 {
			break
		}
	}

	if len(out) != outSize {
		return nil, adberrors.New(adberrors.ProtocolError, "deflate: output size mismatch")
	}
	return out, nil
}

func inflateStoredBlock(r *bitReader, out []byte) ([]byte, error) {
	r.alignToByte()
	if r.bytePos+4 > len(r.data) {
		return nil, adberrors.New(adberrors.ProtocolError, "deflate: truncated stored block header")
	}
	length := int(r.data[r.bytePos]) | int(r.data[r.bytePos+1])<<8
	// The next two bytes are ~length (one's complement), a redundancy
	// check this decoder does not need to verify since the ZIP central
	// directory already gave us the true uncompressed size.
	r.bytePos += 4

	if r.bytePos+length > len(r.data) {
		return nil, adberrors.New(adberrors.ProtocolError, "deflate: truncated stored block data")
	}
	out = append(out, r.data[r.bytePos:r.bytePos+length]...)
	r.bytePos += length
	return out, nil
}

func inflateHuffmanBlock(r *bitReader, out []byte, litTree, distTree *huffmanTree) ([]byte, error) {
	for {
		symbol, err := litTree.decode(r)
		if err != nil {
			return nil, err
		}

		if symbol < 256 {
			out = append(out, byte(symbol))
			continue
		}
		if symbol == 256 {
			return out, nil
		}

		lengthIdx := symbol - 257
		if lengthIdx < 0 || lengthIdx >= len(lengthBase) {
			return nil, adberrors.New(adberrors.ProtocolError, "deflate: invalid length symbol")
		}
		extra, err := r.readBits(lengthExtraBits[lengthIdx])
		if err != nil {
			return nil, err
		}
		length := lengthBase[lengthIdx] + int(extra)

		distSymbol, err := distTree.decode(r)
		if err != nil {
			return nil, err
		}
		if distSymbol < 0 || distSymbol >= len(distBase) {
			return nil, adberrors.New(adberrors.ProtocolError, "deflate: invalid distance symbol")
		}
		distExtra, err := r.readBits(distExtraBits[distSymbol])
		if err != nil {
			return nil, err
		}
		distance := distBase[distSymbol] + int(distExtra)

		if distance > len(out) {
			return nil, adberrors.New(adberrors.ProtocolError, "deflate: back-reference distance exceeds output")
		}
		start := len(out) - distance
		for i := 0; i < length; i++ {
			out = append(out, out[start+i])
		}
	}
}

// readDynamicTrees parses a dynamic Huffman block's header: the
// literal/length and distance code counts, the code-length alphabet
// itself, then the two real trees it describes.
func readDynamicTrees(r *bitReader) (litTree, distTree *huffmanTree, err error) {
	hlit, err := r.readBits(5)
	if err != nil {
		return nil, nil, err
	}
	hdist, err := r.readBits(5)
	if err != nil {
		return nil, nil, err
	}
	hclen, err := r.readBits(4)
	if err != nil {
		return nil, nil, err
	}

	numLit := int(hlit) + 257
	numDist := int(hdist) + 1
	numCodeLen := int(hclen) + 4

	clLengths := make([]int, 19)
	for i := 0; i < numCodeLen; i++ {
		v, err := r.readBits(3)
		if err != nil {
			return nil, nil, err
		}
		clLengths[codeLengthOrder[i]] = int(v)
	}
	clTree := newHuffmanTree(clLengths)

	allLengths := make([]int, numLit+numDist)
	for i := 0; i < len(allLengths); {
		sym, err := clTree.decode(r)
		if err != nil {
			return nil, nil, err
		}
		switch {
		case sym < 16:
			allLengths[i] = sym
			i++
		case sym == 16:
			if i == 0 {
				return nil, nil, adberrors.New(adberrors.ProtocolError, "deflate: repeat with no previous length")
			}
			repeatBits, err := r.readBits(2)
			if err != nil {
				return nil, nil, err
			}
			repeat := int(repeatBits) + 3
			prev := allLengths[i-1]
			for j := 0; j < repeat && i < len(allLengths); j++ {
				allLengths[i] = prev
				i++
			}
		case sym == 17:
			repeatBits, err := r.readBits(3)
			if err != nil {
				return nil, nil, err
			}
			repeat := int(repeatBits) + 3
			for j := 0; j < repeat && i < len(allLengths); j++ {
				allLengths[i] = 0
				i++
			}
		case sym == 18:
			repeatBits, err := r.readBits(7)
			if err != nil {
				return nil, nil, err
			}
			repeat := int(repeatBits) + 11
			for j := 0; j < repeat && i < len(allLengths); j++ {
				allLengths[i] = 0
				i++
			}
		default:
			return nil, nil, adberrors.New(adberrors.ProtocolError, "deflate: invalid code-length symbol")
		}
	}

	litTree = newHuffmanTree(allLengths[:numLit])
	distTree = newHuffmanTree(allLengths[numLit:])
	return litTree, distTree, nil
}
