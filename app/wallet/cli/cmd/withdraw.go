package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/ardanlabs/fundme/business/core/ledger"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

var withdrawCmd = &cobra.Command{
	Use:   "withdraw",
	Short: "Withdraw everything the ledger holds (owner only)",
	Run: func(cmd *cobra.Command, args []string) {
		privateKey, err := crypto.LoadECDSA(getPrivateKeyPath())
		if err != nil {
			log.Fatal(err)
		}

		signedWo, err := ledger.NewWithdrawOrder(nonce).Sign(privateKey)
		if err != nil {
			log.Fatal(err)
		}

		payload := struct {
			ID    string `json:"id"`
			Nonce uint64 `json:"nonce"`
			Sig   string `json:"sig"`
		}{
			ID:    signedWo.ID,
			Nonce: signedWo.Nonce,
			Sig:   signedWo.SignatureString(),
		}

		data, err := json.Marshal(payload)
		if err != nil {
			log.Fatal(err)
		}

		resp, err := http.Post(fmt.Sprintf("%s/v1/funds/withdraw", url), "application/json", bytes.NewBuffer(data))
		if err != nil {
			log.Fatal(err)
		}
		defer resp.Body.Close()

		fmt.Println(resp.Status)
	},
}

func init() {
	rootCmd.AddCommand(withdrawCmd)
	withdrawCmd.Flags().StringVarP(&url, "url", "u", "http://localhost:8080", "Url of the ledger service.")
	withdrawCmd.Flags().Uint64VarP(&nonce, "nonce", "n", 1, "Nonce, must be larger than your last one.")
}
