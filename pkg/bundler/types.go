package bundler

import "github.com/luxfi/safe4337/pkg/userop"

// GasEstimate is the result of eth_estimateUserOperationGas. Paymaster limits
// are only present when the operation carried a paymaster.
type GasEstimate struct {
	PreVerificationGas            string `json:"preVerificationGas"`
	VerificationGasLimit          string `json:"verificationGasLimit"`
	CallGasLimit                  string `json:"callGasLimit"`
	PaymasterVerificationGasLimit string `json:"paymasterVerificationGasLimit,omitempty"`
	PaymasterPostOpGasLimit       string `json:"paymasterPostOpGasLimit,omitempty"`
}

// Receipt is the result of eth_getUserOperationReceipt.
type Receipt struct {
	UserOpHash    string             `json:"userOpHash"`
	EntryPoint    string             `json:"entryPoint,omitempty"`
	Sender        string             `json:"sender"`
	Nonce         string             `json:"nonce"`
	Paymaster     string             `json:"paymaster,omitempty"`
	ActualGasUsed string             `json:"actualGasUsed"`
	ActualGasCost string             `json:"actualGasCost"`
	Success       bool               `json:"success"`
	Reason        string             `json:"reason,omitempty"`
	Receipt       TransactionReceipt `json:"receipt"`
	Logs          []Log              `json:"logs"`
}

// TransactionReceipt is the bundle transaction that included the operation.
// Quantities are kept as the hex strings the bundler sent.
type TransactionReceipt struct {
	TransactionHash   string `json:"transactionHash"`
	TransactionIndex  string `json:"transactionIndex"`
	BlockHash         string `json:"blockHash"`
	BlockNumber       string `json:"blockNumber"`
	From              string `json:"from"`
	To                string `json:"to"`
	CumulativeGasUsed string `json:"cumulativeGasUsed"`
	GasUsed           string `json:"gasUsed"`
	ContractAddress   string `json:"contractAddress,omitempty"`
	Logs              []Log  `json:"logs"`
	LogsBloom         string `json:"logsBloom"`
	Status            string `json:"status"`
	EffectiveGasPrice string `json:"effectiveGasPrice"`
}

type Log struct {
	LogIndex         string   `json:"logIndex"`
	TransactionIndex string   `json:"transactionIndex"`
	TransactionHash  string   `json:"transactionHash"`
	BlockHash        string   `json:"blockHash"`
	BlockNumber      string   `json:"blockNumber"`
	Address          string   `json:"address"`
	Data             string   `json:"data"`
	Topics           []string `json:"topics"`
	Removed          bool     `json:"removed,omitempty"`
}

// UserOperationByHash is the result of eth_getUserOperationByHash.
type UserOperationByHash struct {
	UserOperation   userop.UserOperation `json:"userOperation"`
	EntryPoint      string               `json:"entryPoint"`
	TransactionHash string               `json:"transactionHash"`
	BlockHash       string               `json:"blockHash"`
	BlockNumber     string               `json:"blockNumber"`
}
