package videoframe

type PictureType int

const (
	PictureTypeNone PictureType = iota
	PictureTypeI
	PictureTypeP
	PictureTypeB
	PictureTypeS
	PictureTypeSI
	PictureTypeSP
	PictureTypeBI
)

var pictureTypeChars = map[PictureType]byte{
	PictureTypeI:  'I',
	PictureTypeP:  'P',
	PictureTypeB:  'B',
	PictureTypeS:  'S',
	PictureTypeSI: 'i',
	PictureTypeSP: 'p',
	PictureTypeBI: 'b',
}

// Char returns the single display character for the picture type, '?' when
// the type is unknown.
func (t PictureType) Char() byte {
	if c, ok := pictureTypeChars[t]; ok {
		return c
	}
	return '?'
}

func (t PictureType) String() string {
	return string(t.Char())
}
