package a

import (
	"fmt"
	"log" // want "import of the standard log package; use the zap logger instead"
)

func Report(err error) {
	log.Println(fmt.Sprint(err))
}
