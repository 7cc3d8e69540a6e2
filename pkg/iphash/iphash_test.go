package iphash

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashDeterministic(t *testing.T) {
	a := Hash("203.0.113.7")
	b := Hash("203.0.113.7")
	assert.Equal(t, a, b)
	assert.Len(t, a, hashLen)
}

func TestHashEmptyReturnsUnknown(t *testing.T) {
	assert.Equal(t, Unknown, Hash(""))
}

func TestHashDifferentAddrs(t *testing.T) {
	assert.NotEqual(t, Hash("203.0.113.7"), Hash("198.51.100.9"))
}

func TestHashDropsPrefix(t *testing.T) {
	// 前两位被丢弃，只有后缀相同的地址会得到相同指纹
	assert.Equal(t, Hash("10.0.113.7"), Hash("20.0.113.7"))
	// 短地址不裁剪
	assert.Equal(t, Hash("ab"), Hash("ab"))
	assert.NotEqual(t, Hash("ab"), Hash("cd"))
}
