package gltfx

// Image is texture data carried as bytes or as a URI reference.
type Image struct {
	propertyBase
	uri      string
	mimeType string
	data     []byte
}

func (i *Image) PropertyType() PropertyType { return PropertyImage }

func (i *Image) URI() string      { return i.uri }
func (i *Image) MimeType() string { return i.mimeType }
func (i *Image) Data() []byte     { return i.data }

func (i *Image) SetURI(uri string) *Image {
	i.uri = uri
	return i
}

func (i *Image) SetMimeType(m string) *Image {
	i.mimeType = m
	return i
}

func (i *Image) SetData(b []byte) *Image {
	i.data = b
	return i
}
