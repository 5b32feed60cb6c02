package s3

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectURLAndKeyAreSymmetric(t *testing.T) {
	c, err := NewClient("http://localhost:9000", false, "k", "s", "rentcar", "https://cdn.example.com/", nil)
	require.NoError(t, err)

	u := c.objectURL("cars/c1/images/a.jpg")
	assert.Equal(t, "https://cdn.example.com/rentcar/cars/c1/images/a.jpg", u)

	key, err := c.keyFromURL(u)
	require.NoError(t, err)
	assert.Equal(t, "cars/c1/images/a.jpg", key)
}

func TestKeyFromURLRejectsOtherHosts(t *testing.T) {
	c, err := NewClient("localhost:9000", false, "k", "s", "rentcar", "", nil)
	require.NoError(t, err)

	_, err = c.keyFromURL("https://elsewhere.example.com/rentcar/x.jpg")
	assert.ErrorIs(t, err, ErrForeignURL)
	_, err = c.keyFromURL("localhost:9000/rentcar/")
	assert.ErrorIs(t, err, ErrForeignURL)
}

func TestNewClientValidatesInput(t *testing.T) {
	_, err := NewClient("", false, "", "", "b", "", nil)
	assert.Error(t, err)
	_, err = NewClient("localhost:9000", false, "", "", " ", "", nil)
	assert.Error(t, err)
}
