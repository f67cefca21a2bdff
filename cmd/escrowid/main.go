// Command escrowid prints the escrow account id that collects membership fees.
package main

import (
	"fmt"

	"github.com/Overland-East-Bay/club-membership-engine/internal/domain"
)

func main() {
	fmt.Println(domain.EscrowAccountID())
}
