package types

import (
	"fmt"
)

const Blockchain = "ppy"

// Network describes a chain endpoint as the host wallet stores it.
type Network struct {
	Name       string `json:"name"`
	Protocol   string `json:"protocol"`
	Host       string `json:"host"`
	Port       int    `json:"port"`
	Blockchain string `json:"blockchain"`
	ChainID    string `json:"chainId"`
}

// Fullhost is protocol://host:port, without the port when it is zero.
func (n Network) Fullhost() string {
	if n.Port == 0 {
		return fmt.Sprintf("%s://%s", n.Protocol, n.Host)
	}
	return fmt.Sprintf("%s://%s:%d", n.Protocol, n.Host, n.Port)
}

// Unique identifies the network independently of its display name.
func (n Network) Unique() string {
	return fmt.Sprintf("%s:%s", n.Blockchain, n.ChainID)
}
