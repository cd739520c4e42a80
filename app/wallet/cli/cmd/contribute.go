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

var (
	url    string
	nonce  uint64
	amount uint64
)

var contributeCmd = &cobra.Command{
	Use:   "contribute",
	Short: "Send a signed contribution to the ledger",
	Run: func(cmd *cobra.Command, args []string) {
		privateKey, err := crypto.LoadECDSA(getPrivateKeyPath())
		if err != nil {
			log.Fatal(err)
		}

		cn, err := ledger.NewContribution(nonce, amount)
		if err != nil {
			log.Fatal(err)
		}

		signedCn, err := cn.Sign(privateKey)
		if err != nil {
			log.Fatal(err)
		}

		payload := struct {
			ID     string `json:"id"`
			Nonce  uint64 `json:"nonce"`
			Amount uint64 `json:"amount"`
			Sig    string `json:"sig"`
		}{
			ID:     signedCn.ID,
			Nonce:  signedCn.Nonce,
			Amount: signedCn.Amount,
			Sig:    signedCn.SignatureString(),
		}

		data, err := json.Marshal(payload)
		if err != nil {
			log.Fatal(err)
		}

		resp, err := http.Post(fmt.Sprintf("%s/v1/funds/contribute", url), "application/json", bytes.NewBuffer(data))
		if err != nil {
			log.Fatal(err)
		}
		defer resp.Body.Close()

		fmt.Println(resp.Status)
	},
}

func init() {
	rootCmd.AddCommand(contributeCmd)
	contributeCmd.Flags().StringVarP(&url, "url", "u", "http://localhost:8080", "Url of the ledger service.")
	contributeCmd.Flags().Uint64VarP(&nonce, "nonce", "n", 1, "Nonce, must be larger than your last one.")
	contributeCmd.Flags().Uint64VarP(&amount, "amount", "v", 0, "Native amount to contribute.")
}
