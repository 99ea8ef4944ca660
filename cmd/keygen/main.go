package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/easywinget/backend/pkg/utils/crypto"
	"github.com/easywinget/backend/pkg/utils/keygen"
	"github.com/easywinget/backend/pkg/utils/sshkeygen"
)

func main() {
	sshKey := flag.Bool("ssh", false, "generate the ed25519 key pair used by the ssh backend")
	tokens := flag.Bool("tokens", false, "print a fresh admin API key and backend token")
	seal := flag.String("seal", "", "encrypt a secret for config using EASYWINGET_SECURITY_ENCRYPTION_KEY")
	flag.Parse()

	if !*sshKey && !*tokens && *seal == "" {
		flag.Usage()
		os.Exit(2)
	}

	if *sshKey {
		priv, pub, err := sshkeygen.DefaultPaths()
		if err != nil {
			log.Fatalf("Failed to resolve key paths: %v", err)
		}
		created, err := sshkeygen.GenerateEd25519KeyPair(priv, pub)
		if err != nil {
			log.Fatalf("Failed to generate key pair: %v", err)
		}
		if created {
			fmt.Printf("✓ Key pair generated\n")
		} else {
			fmt.Printf("✓ Key pair already exists (skipped)\n")
		}
		fmt.Printf("Private key: %s\n", priv)
		fmt.Printf("Public key:  %s\n", pub)
		fmt.Printf("Append the public key to C:\\ProgramData\\ssh\\administrators_authorized_keys on the winget host.\n")
	}

	if *tokens {
		for _, name := range []string{"auth.admin_api_key", "auth.backend_token"} {
			tok, err := keygen.GenerateToken(40)
			if err != nil {
				log.Fatalf("Failed to generate token: %v", err)
			}
			fmt.Printf("%s: %s\n", name, tok)
		}
	}

	if *seal != "" {
		sealed, err := crypto.SealSecret(*seal, os.Getenv("EASYWINGET_SECURITY_ENCRYPTION_KEY"))
		if err != nil {
			log.Fatalf("Failed to seal secret: %v", err)
		}
		fmt.Println(sealed)
	}
}
