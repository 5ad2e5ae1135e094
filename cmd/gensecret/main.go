// Command gensecret prints a random signing key suitable for SIGNING_KEY
package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/nkiryanov/nihondrill/internal/service/auth/signer"
)

func main() {
	b, err := signer.RandomBytes(signer.KeyLen)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error while generating signing key: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(hex.EncodeToString(b))
}
