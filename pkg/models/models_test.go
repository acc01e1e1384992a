package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompleteKeepsOrderAndDropsEmptyType(t *testing.T) {
	c := AnimalRecordCollection{
		{Name: "Aardvark", Type: "Mammal", Features: "Long snout"},
		{Name: "Unknown"},
		{Name: "Albatross", Type: "Aves"},
		{Name: "Aardvark", Type: "Mammal", Features: "Long snout"},
	}

	kept := c.Complete()

	assert.Equal(t, []string{"Aardvark", "Albatross", "Aardvark"}, kept.Names())
	assert.Empty(t, AnimalRecordCollection{{Name: "x"}}.Complete())
	assert.NotNil(t, AnimalRecordCollection(nil).Complete())
}
